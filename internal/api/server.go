// Package api implements the Dispatch Surface (C9): the HTTP server that
// matches a (model_id, operation) pair to a handler, validates request
// bodies into typed structs, and maps component failures to HTTP status
// codes via internal/apperr. Routing and server wiring are grounded on
// internal/mcp/http.go's HTTPServer (constructor-injected logger, a single
// Handler() entrypoint); routing itself uses chi instead of a bare
// ServeMux since the route space is keyed by nested path segments
// (model id, operation) that chi expresses directly as URL params.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcplane/mcpd/internal/apperr"
	"github.com/mcplane/mcpd/internal/fsgateway"
	"github.com/mcplane/mcpd/internal/promproxy"
	"github.com/mcplane/mcpd/internal/registry"
)

// ChatClient forwards a chat or completion request to an external
// provider. Deliberately thin — the LLM SDK itself is an opaque external
// collaborator per the purpose statement; the Server only needs something
// satisfying this shape to exercise the forwarding route.
type ChatClient interface {
	Chat(ctx context.Context, modelID string, req ChatRequest) (ChatResponse, error)
	Completion(ctx context.Context, modelID string, req CompletionRequest) (CompletionResponse, error)
}

// Server is the C9 dispatch surface.
type Server struct {
	registry    *registry.Registry
	gateway     *fsgateway.Gateway
	prometheus  *promproxy.Proxy
	chatClient  ChatClient
	logger      *slog.Logger
	metrics     *serverMetrics
	router      chi.Router
}

type serverMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewServer wires the dispatch surface against its component dependencies.
// metricsRegistry is the private Prometheus registry C13 exposes at
// /metrics; passing one here keeps the Server's metrics out of any
// package-level global, per the Design Notes' "global singletons"
// directive.
func NewServer(reg *registry.Registry, gateway *fsgateway.Gateway, prom *promproxy.Proxy, chatClient ChatClient, logger *slog.Logger, metricsRegistry *prometheus.Registry) *Server {
	s := &Server{
		registry:   reg,
		gateway:    gateway,
		prometheus: prom,
		chatClient: chatClient,
		logger:     logger,
	}

	if metricsRegistry != nil {
		s.metrics = &serverMetrics{
			requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "mcpd_requests_total",
				Help: "Total HTTP requests served by the dispatch surface.",
			}, []string{"route", "status"}),
			requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "mcpd_request_duration_seconds",
				Help:    "Request handling latency in seconds.",
				Buckets: prometheus.DefBuckets,
			}, []string{"route"}),
		}
		metricsRegistry.MustRegister(s.metrics.requestsTotal, s.metrics.requestDuration)
	}

	s.router = s.buildRouter(metricsRegistry)
	return s
}

// Handler returns the http.Handler serving the full dispatch surface.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(metricsRegistry *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDHeader)
	r.Use(s.requestLogger)
	if s.metrics != nil {
		r.Use(s.instrumentRequests)
	}

	r.Get("/v1/models", s.handleListModels)
	r.Get("/v1/models/{id}", s.handleGetModel)
	r.Post("/v1/models/{id}/chat", s.handleChat)
	r.Post("/v1/models/{id}/completion", s.handleCompletion)

	r.Post("/v1/models/git-analyzer/diff", s.handleGitLastCommitDiff)
	r.Post("/v1/models/git-diff-analyzer/analyze", s.handleGitDiffAnalyze)
	r.Post("/v1/models/git-diff-analyzer/analyze-requirements", s.handleAnalyzeRequirements)
	r.Post("/v1/models/git-diff-analyzer/search", s.handleGitSearch)
	r.Post("/v1/models/git-diff-analyzer/structure", s.handleGitStructure)
	r.Post("/v1/git/analyze_comprehensive", s.handleComprehensive)

	r.Post("/v1/models/filesystem/list", s.handleFsList)
	r.Post("/v1/models/filesystem/read", s.handleFsRead)
	r.Post("/v1/models/filesystem/read-multiple", s.handleFsReadMany)
	r.Post("/v1/models/filesystem/write", s.handleFsWrite)
	r.Post("/v1/models/filesystem/edit", s.handleFsEdit)
	r.Post("/v1/models/filesystem/mkdir", s.handleFsMkdir)
	r.Post("/v1/models/filesystem/move", s.handleFsMove)
	r.Post("/v1/models/filesystem/search", s.handleFsSearch)
	r.Post("/v1/models/filesystem/info", s.handleFsInfo)

	r.Post("/v1/models/prometheus/query", s.handlePromQuery)
	r.Post("/v1/models/prometheus/query_range", s.handlePromQueryRange)
	r.Post("/v1/models/prometheus/series", s.handlePromSeries)
	r.Post("/v1/models/prometheus/label_values", s.handlePromLabelValues)
	r.Get("/v1/models/prometheus/labels", s.handlePromLabels)
	r.Get("/v1/models/prometheus/targets", s.handlePromTargets)
	r.Get("/v1/models/prometheus/rules", s.handlePromRules)
	r.Get("/v1/models/prometheus/alerts", s.handlePromAlerts)

	if metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	return r
}

// requestIDHeader stamps every response with a fresh correlation ID,
// reusing one supplied by the caller if present.
func requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.With(
			"method", r.Method,
			"route", r.URL.Path,
			"status", ww.Status(),
			"request_id", w.Header().Get("X-Request-ID"),
			"duration_ms", time.Since(start).Milliseconds(),
		).Info("handled request")
	})
}

func (s *Server) instrumentRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.requestsTotal.WithLabelValues(route, http.StatusText(ww.Status())).Inc()
		s.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to the error envelope {detail: message} and an
// HTTP status derived from its apperr.Kind, per §7's propagation policy.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindPermissionDenied:
		status = http.StatusForbidden
	case apperr.KindCloneFailed, apperr.KindUpstream:
		status = http.StatusBadGateway
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apperr.KindInternal:
		status = http.StatusInternalServerError
	}

	body := map[string]string{"detail": appErr.Message}
	if appErr.Kind == apperr.KindValidation && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("body", "request body is not valid JSON")
	}
	return nil
}
