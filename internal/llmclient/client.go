// Package llmclient implements the ChatClient the dispatch surface
// forwards chat and completion requests to. The LLM provider is an opaque
// external collaborator reached over an OpenAI-compatible HTTP API; the
// pooled transport follows internal/emergent/client.go's
// NewClientFactory, and the request/response shapes follow the
// chat-completions convention used throughout the example pack (e.g.
// codenerd's perception.OpenAIClient).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mcplane/mcpd/internal/api"
	"github.com/mcplane/mcpd/internal/apperr"
)

// Client forwards chat and completion requests to a single
// OpenAI-compatible provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Client against baseURL, authenticating with apiKey.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
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

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []api.ChatMessage `json:"messages"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Message      api.ChatMessage `json:"message"`
		Index        int             `json:"index"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// Chat forwards req to the provider's /chat/completions endpoint.
func (c *Client) Chat(ctx context.Context, modelID string, req api.ChatRequest) (api.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:       modelID,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var decoded chatCompletionResponse
	if err := c.post(ctx, "/chat/completions", body, &decoded); err != nil {
		return api.ChatResponse{}, err
	}

	choices := make([]api.ChatChoice, 0, len(decoded.Choices))
	for _, ch := range decoded.Choices {
		choices = append(choices, api.ChatChoice{
			Message:      ch.Message,
			Index:        ch.Index,
			FinishReason: ch.FinishReason,
		})
	}

	return api.ChatResponse{
		ID:      decoded.ID,
		Created: decoded.Created,
		Model:   decoded.Model,
		Choices: choices,
		Usage:   decoded.Usage,
	}, nil
}

type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Text         string `json:"text"`
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// Completion forwards req to the provider's /completions endpoint.
func (c *Client) Completion(ctx context.Context, modelID string, req api.CompletionRequest) (api.CompletionResponse, error) {
	body := completionRequest{
		Model:       modelID,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var decoded completionResponse
	if err := c.post(ctx, "/completions", body, &decoded); err != nil {
		return api.CompletionResponse{}, err
	}

	choices := make([]api.CompletionChoice, 0, len(decoded.Choices))
	for _, ch := range decoded.Choices {
		choices = append(choices, api.CompletionChoice{
			Text:         ch.Text,
			Index:        ch.Index,
			FinishReason: ch.FinishReason,
		})
	}

	return api.CompletionResponse{
		ID:      decoded.ID,
		Created: decoded.Created,
		Model:   decoded.Model,
		Choices: choices,
		Usage:   decoded.Usage,
	}, nil
}

// Router dispatches Chat calls to one provider client and Completion calls
// to another, so a deployment can point chat and completion at distinct
// backends. Either field may be nil; calling the corresponding method then
// fails with apperr.Upstream, the same as an unconfigured single client.
type Router struct {
	ChatClient       api.ChatClient
	CompletionClient api.ChatClient
}

func (r Router) Chat(ctx context.Context, modelID string, req api.ChatRequest) (api.ChatResponse, error) {
	if r.ChatClient == nil {
		return api.ChatResponse{}, apperr.Upstream("no chat provider configured", nil)
	}
	return r.ChatClient.Chat(ctx, modelID, req)
}

func (r Router) Completion(ctx context.Context, modelID string, req api.CompletionRequest) (api.CompletionResponse, error) {
	if r.CompletionClient == nil {
		return api.CompletionResponse{}, apperr.Upstream("no completion provider configured", nil)
	}
	return r.CompletionClient.Completion(ctx, modelID, req)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return apperr.Internal("encoding provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return apperr.Internal("building provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream("provider request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Upstream("reading provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Upstream(fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Upstream("decoding provider response", err)
	}
	return nil
}
