package promproxy_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/promproxy"
)

func TestQueryPassesThroughSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/query", r.URL.Path)
		require.Equal(t, "up", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
	}))
	defer server.Close()

	p := promproxy.New(server.URL, 5*time.Second)
	env := p.Query(context.Background(), "up", "")
	require.Equal(t, "success", env.Status)
	require.Empty(t, env.Error)
}

func TestQueryAgainstUnreachableUpstreamReturnsErrorEnvelope(t *testing.T) {
	p := promproxy.New("http://127.0.0.1:1", 2*time.Second)

	start := time.Now()
	env := p.Query(context.Background(), "up", "")
	elapsed := time.Since(start)

	require.Equal(t, "error", env.Status)
	require.NotEmpty(t, env.Error)
	require.Equal(t, json.RawMessage("null"), env.Data)
	require.Less(t, elapsed, 10*time.Second)
}

func TestLabelValuesEscapesLabelName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/label/job name/values", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","data":[]}`))
	}))
	defer server.Close()

	p := promproxy.New(server.URL, 5*time.Second)
	env := p.LabelValues(context.Background(), "job name")
	require.Equal(t, "success", env.Status)
}

func TestNonOKStatusIsReportedAsErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	p := promproxy.New(server.URL, 5*time.Second)
	env := p.Targets(context.Background())
	require.Equal(t, "error", env.Status)
	require.Contains(t, env.Error, "500")
}
