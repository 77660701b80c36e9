// Package promproxy implements the Prometheus Proxy (C8): a thin,
// pass-through client for Prometheus's HTTP API, exposed through a
// uniform error envelope so an unreachable upstream never surfaces as a
// dispatcher-level failure. The connection-pooled *http.Client
// construction is grounded on internal/emergent/client.go's
// NewClientFactory; the endpoint set and response shape are grounded on
// original_source/mcp/prometheus_service.py's PrometheusService.
package promproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Envelope is the uniform response shape every operation returns, whether
// the upstream call succeeded or failed.
type Envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Proxy forwards PromQL operations to a configured Prometheus base URL.
type Proxy struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Proxy against baseURL with connection pooling and a
// bounded per-request timeout.
func New(baseURL string, timeout time.Duration) *Proxy {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &Proxy{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Query executes an instant PromQL query, with an optional evaluation
// timestamp.
func (p *Proxy) Query(ctx context.Context, queryExpr, evalTime string) Envelope {
	params := url.Values{"query": {queryExpr}}
	if evalTime != "" {
		params.Set("time", evalTime)
	}
	return p.get(ctx, "/api/v1/query", params)
}

// QueryRange executes a ranged PromQL query.
func (p *Proxy) QueryRange(ctx context.Context, queryExpr, start, end, step string) Envelope {
	params := url.Values{
		"query": {queryExpr},
		"start": {start},
		"end":   {end},
		"step":  {step},
	}
	return p.get(ctx, "/api/v1/query_range", params)
}

// Series finds series matching the given selectors.
func (p *Proxy) Series(ctx context.Context, match []string, start, end string) Envelope {
	params := url.Values{}
	for _, m := range match {
		params.Add("match[]", m)
	}
	if start != "" {
		params.Set("start", start)
	}
	if end != "" {
		params.Set("end", end)
	}
	return p.get(ctx, "/api/v1/series", params)
}

// Labels lists all label names.
func (p *Proxy) Labels(ctx context.Context) Envelope {
	return p.get(ctx, "/api/v1/labels", nil)
}

// LabelValues lists all values for a given label name.
func (p *Proxy) LabelValues(ctx context.Context, label string) Envelope {
	return p.get(ctx, "/api/v1/label/"+url.PathEscape(label)+"/values", nil)
}

// Targets lists scrape targets.
func (p *Proxy) Targets(ctx context.Context) Envelope {
	return p.get(ctx, "/api/v1/targets", nil)
}

// Rules lists alerting and recording rules.
func (p *Proxy) Rules(ctx context.Context) Envelope {
	return p.get(ctx, "/api/v1/rules", nil)
}

// Alerts lists active alerts.
func (p *Proxy) Alerts(ctx context.Context) Envelope {
	return p.get(ctx, "/api/v1/alerts", nil)
}

// get performs the pass-through GET and maps any failure — network,
// non-2xx status, or undecodable body — into the uniform error envelope
// rather than a dispatcher-level error.
func (p *Proxy) get(ctx context.Context, path string, params url.Values) Envelope {
	target := p.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errorEnvelope(err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errorEnvelope(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorEnvelope(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorEnvelope(fmt.Errorf("prometheus returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errorEnvelope(err)
	}
	return env
}

func errorEnvelope(err error) Envelope {
	return Envelope{Status: "error", Error: err.Error(), Data: json.RawMessage("null")}
}
