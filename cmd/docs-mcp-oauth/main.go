// Command docs-mcp-oauth runs the documentation MCP server: an OAuth 2.1
// authorization server backed by GitHub for sign-in, plus the protected
// JSON-RPC endpoint answering documentation searches via the Kapa API.
//
// Configuration is read from the environment (a .env file is loaded when
// present). Required variables:
//
//	BASE_URL              public origin, e.g. https://mcp.example.com
//	SIGNING_SECRET        HMAC secret for issued tokens, 32+ bytes
//	GITHUB_CLIENT_ID      GitHub OAuth App credentials
//	GITHUB_CLIENT_SECRET
//	KAPA_API_KEY          Kapa retrieval API credentials
//	KAPA_PROJECT_ID
//	KAPA_INTEGRATION_ID
//
// Optional: PORT (default 8080), REDIS_URL (in-memory storage when
// unset), ALLOWED_EMAILS, ALLOWED_DOMAINS, DOCS_URL, RATE_LIMIT_RPS,
// RATE_LIMIT_BURST, TRUST_PROXY, STRICT_CLIENT_BINDING, LOG_LEVEL,
// LOG_JSON, OTEL_ENABLED.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	oauth "github.com/hazelcast/docs-mcp-oauth"
	"github.com/hazelcast/docs-mcp-oauth/instrumentation"
	"github.com/hazelcast/docs-mcp-oauth/kapa"
	"github.com/hazelcast/docs-mcp-oauth/mcp"
	"github.com/hazelcast/docs-mcp-oauth/providers/github"
	"github.com/hazelcast/docs-mcp-oauth/storage"
	"github.com/hazelcast/docs-mcp-oauth/storage/memory"
	"github.com/hazelcast/docs-mcp-oauth/storage/redis"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := strings.TrimRight(requireEnv("BASE_URL"), "/")

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "docs-mcp-oauth",
		ServiceVersion: version,
		Enabled:        boolEnv("OTEL_ENABLED", false),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Instrumentation shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := newStore(logger, inst)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := github.NewProvider(&github.Config{
		ClientID:     requireEnv("GITHUB_CLIENT_ID"),
		ClientSecret: requireEnv("GITHUB_CLIENT_SECRET"),
		RedirectURL:  baseURL + "/oauth/callback",
	})
	if err != nil {
		return err
	}

	cfg := &oauth.Config{
		BaseURL:        baseURL,
		SigningSecret:  []byte(requireEnv("SIGNING_SECRET")),
		AllowedEmails:  splitEnv("ALLOWED_EMAILS"),
		AllowedDomains: splitEnv("ALLOWED_DOMAINS"),
		DocsURL:        os.Getenv("DOCS_URL"),
		RateLimit: oauth.RateLimitConfig{
			Rate:              intEnv("RATE_LIMIT_RPS", 10),
			Burst:             intEnv("RATE_LIMIT_BURST", 20),
			TrustProxy:        boolEnv("TRUST_PROXY", false),
			TrustedProxyCount: intEnv("TRUSTED_PROXY_COUNT", 1),
		},
		Security: oauth.SecurityConfig{
			StrictClientBinding: boolEnv("STRICT_CLIENT_BINDING", false),
		},
		Logger: logger,
	}

	server, err := oauth.NewServer(cfg, provider, store)
	if err != nil {
		return err
	}
	server.SetInstrumentation(inst)

	handler := oauth.NewHandler(server)
	handler.SetInstrumentation(inst)
	defer handler.Close()

	backend, err := kapa.New(kapa.Config{
		APIKey:        requireEnv("KAPA_API_KEY"),
		ProjectID:     requireEnv("KAPA_PROJECT_ID"),
		IntegrationID: requireEnv("KAPA_INTEGRATION_ID"),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	gateway, err := mcp.New(mcp.Config{
		Signer:              server.Signer(),
		Resource:            server.Config().Resource,
		ResourceMetadataURL: baseURL + "/.well-known/oauth-protected-resource",
		Backend:             backend,
		DocsURL:             cfg.DocsURL,
		ServerName:          "docs-mcp-oauth",
		ServerVersion:       version,
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	router := newRouter(handler, gateway)

	addr := ":" + envOrDefault("PORT", "8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"addr", addr,
			"base_url", baseURL,
			"resource", cfg.Resource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires the OAuth endpoints, the discovery documents, and the
// protected MCP endpoint onto one router.
func newRouter(handler *oauth.Handler, gateway *mcp.Gateway) http.Handler {
	// Proxy header trust is handled by the rate limiter's IP extraction,
	// so RealIP is deliberately not installed here.
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/.well-known/oauth-authorization-server", handler.ServeAuthorizationServerMetadata)
	r.Get("/.well-known/oauth-protected-resource", handler.ServeProtectedResourceMetadata)

	r.Get("/oauth/authorize", handler.ServeAuthorization)
	r.Get("/oauth/callback", handler.ServeCallback)
	r.HandleFunc("/oauth/token", handler.ServeToken)
	r.HandleFunc("/oauth/register", handler.ServeClientRegistration)

	r.HandleFunc("/mcp", gateway.ServeHTTP)
	r.Get("/mcp/health", gateway.ServeHealth)
	r.Get("/health", gateway.ServeHealth)

	return r
}

// newStore picks Redis when REDIS_URL is set, in-memory otherwise. The
// in-memory store also registers its artifact count gauges.
func newStore(logger *slog.Logger, inst *instrumentation.Instrumentation) (storage.Store, func(), error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		s, err := redis.New(redis.Config{URL: url, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	logger.Warn("REDIS_URL not set, using in-memory storage; artifacts will not survive restarts")
	s := memory.NewStore(logger)
	err := inst.RegisterStorageSizeCallbacks(
		func() int64 { p, _, _, _ := s.Counts(); return int64(p) },
		func() int64 { _, c, _, _ := s.Counts(); return int64(c) },
		func() int64 { _, _, c, _ := s.Counts(); return int64(c) },
		func() int64 { _, _, _, r := s.Counts(); return int64(r) },
	)
	if err != nil {
		logger.Warn("Failed to register storage gauges", "error", err)
	}
	return s, s.Stop, nil
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel()}
	if boolEnv("LOG_JSON", true) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		slog.Error("Required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return value
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer environment variable, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
