// Command mcpd runs the Model Control Plane broker.
//
// It serves the C9 dispatch surface over HTTP, fronting a fixed catalog of
// model descriptors (chat and completion providers, the git analyzers,
// the filesystem gateway, and the Prometheus proxy) behind a single
// (model_id, operation) routing table.
//
// Optional environment variables:
//
//	MCPD_CONFIG             - path to a TOML config file
//	MCPD_LISTEN_ADDR        - HTTP listen address (default: ":8080")
//	MCPD_OUTBOUND_TIMEOUT   - timeout for outbound calls, e.g. "30s"
//	MCPD_CHAT_BASE_URL      - chat provider base URL
//	MCPD_CHAT_API_KEY       - chat provider API key
//	MCPD_COMPLETION_BASE_URL - completion provider base URL
//	MCPD_COMPLETION_API_KEY  - completion provider API key
//	MCPD_PROMETHEUS_URL     - upstream Prometheus base URL
//	MCPD_ALLOWED_DIRS       - comma-separated filesystem sandbox roots
//	MCPD_LOG_LEVEL          - debug, info, warn, error (default: info)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcplane/mcpd/internal/api"
	"github.com/mcplane/mcpd/internal/config"
	"github.com/mcplane/mcpd/internal/fsgateway"
	"github.com/mcplane/mcpd/internal/llmclient"
	"github.com/mcplane/mcpd/internal/promproxy"
	"github.com/mcplane/mcpd/internal/registry"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcpd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("MCPD_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	logger.Info("starting mcpd", "version", Version, "listen_addr", cfg.Server.ListenAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New()
	for _, d := range builtinDescriptors() {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("registering model %q: %w", d.ID, err)
		}
	}

	gateway, err := fsgateway.New(cfg.Filesystem.AllowedDirs)
	if err != nil {
		return fmt.Errorf("creating filesystem gateway: %w", err)
	}

	prom := promproxy.New(cfg.Prometheus.URL, cfg.OutboundTimeout())

	var chatClient api.ChatClient
	switch {
	case cfg.Chat.BaseURL == "" && cfg.Completion.BaseURL == "":
		// neither provider configured; chatClient stays nil
	case cfg.Chat.BaseURL == cfg.Completion.BaseURL && cfg.Chat.APIKey == cfg.Completion.APIKey:
		chatClient = llmclient.New(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.OutboundTimeout())
	default:
		router := llmclient.Router{}
		if cfg.Chat.BaseURL != "" {
			router.ChatClient = llmclient.New(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.OutboundTimeout())
		}
		if cfg.Completion.BaseURL != "" {
			router.CompletionClient = llmclient.New(cfg.Completion.BaseURL, cfg.Completion.APIKey, cfg.OutboundTimeout())
		}
		chatClient = router
	}

	metricsRegistry := prometheus.NewRegistry()
	server := api.NewServer(reg, gateway, prom, chatClient, logger, metricsRegistry)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// builtinDescriptors is the fixed model catalog the broker starts with:
// the chat and completion forwarders, the two git analyzers, the
// filesystem gateway, and the Prometheus proxy.
func builtinDescriptors() []*registry.Descriptor {
	return []*registry.Descriptor{
		{
			ID:            "default-chat",
			Name:          "Default Chat Model",
			Description:   "Forwards chat completions to the configured provider.",
			Capabilities:  map[registry.Capability]bool{registry.CapabilityChat: true},
			ContextLength: 128000,
		},
		{
			ID:            "default-completion",
			Name:          "Default Completion Model",
			Description:   "Forwards text completions to the configured provider.",
			Capabilities:  map[registry.Capability]bool{registry.CapabilityCompletion: true},
			ContextLength: 32000,
		},
		{
			ID:           "git-analyzer",
			Name:         "Git Analyzer",
			Description:  "Diffs the last commit of a repository against its parent.",
			Capabilities: map[registry.Capability]bool{registry.CapabilityGit: true},
		},
		{
			ID:           "git-diff-analyzer",
			Name:         "Git Diff Analyzer",
			Description:  "Diffs arbitrary revisions, analyzes requirements changes, and searches or maps repository structure.",
			Capabilities: map[registry.Capability]bool{registry.CapabilityGit: true},
		},
		{
			ID:           "filesystem",
			Name:         "Filesystem Gateway",
			Description:  "Sandboxed read/write/search access to a fixed set of directories.",
			Capabilities: map[registry.Capability]bool{registry.CapabilityFilesystem: true},
		},
		{
			ID:           "prometheus",
			Name:         "Prometheus Proxy",
			Description:  "Pass-through access to a Prometheus server's HTTP API.",
			Capabilities: map[registry.Capability]bool{registry.CapabilityPrometheus: true},
		},
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
