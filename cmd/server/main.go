// Interviewer - technical interview session server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/interviewer/internal/agent"
	"github.com/ashureev/interviewer/internal/api"
	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/config"
	"github.com/ashureev/interviewer/internal/container"
	"github.com/ashureev/interviewer/internal/history"
	"github.com/ashureev/interviewer/internal/identity"
	"github.com/ashureev/interviewer/internal/interview"
	"github.com/ashureev/interviewer/internal/live"
	"github.com/ashureev/interviewer/internal/middleware"
	"github.com/ashureev/interviewer/internal/runner"
	"github.com/ashureev/interviewer/internal/store"
	"github.com/ashureev/interviewer/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	requestRatePerSecond = 5
	requestRateBurst     = 20
	shutdownTimeout      = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"in_container", config.IsContainer(),
		"dialogue_transport", cfg.Dialogue.Transport,
		"runner_backend", cfg.Runner.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	tasks, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load task catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Task catalog loaded", "tasks", len(tasks.List()))

	checks := map[string]api.Check{"database": repo.Ping}

	transport, err := newDialogueTransport(cfg, logger, checks)
	if err != nil {
		slog.Error("Failed to initialize dialogue client", "error", err)
		os.Exit(1)
	}
	dialogue := agent.NewService(transport, agent.Mode(cfg.Dialogue.Mode), logger)
	defer dialogue.Close()

	codeRunner, cleanup, err := newRunner(ctx, cfg, tasks, dialogue, logger)
	if err != nil {
		slog.Error("Failed to initialize code runner", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Initialize services.
	historyStore := history.NewStore(repo, logger)
	profiles := history.NewProfiles(repo)

	registry := interview.NewRegistry(interview.Deps{
		Dialogue:        dialogue,
		Runner:          codeRunner,
		Recorder:        historyStore,
		Tasks:           tasks,
		Logger:          logger,
		WarningDuration: cfg.WarningDuration,
		CallTimeout:     cfg.CallTimeout,
		ResetTimeout:    cfg.ResetTimeout,
	}, cfg.SessionTTL)
	defer registry.CloseAll()

	conns := live.NewConnManager()
	registry.OnEvict(conns.Close)

	limiter := middleware.NewRateLimiter(requestRatePerSecond, requestRateBurst)

	// Initialize handlers.
	apiHandler := api.NewHandler(registry, historyStore, profiles, tasks, logger)
	healthHandler := api.NewHealthHandler(checks)
	liveHandler := live.NewHandler(registry, conns, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Identified routes (anonymous device cookie, no auth).
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		r.Use(limiter.Middleware)
		apiHandler.RegisterRoutes(r)
	})
	r.With(identity.Middleware(repo, cfg.IsDevelopment())).Get("/ws/session", liveHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	registry.StartSweeper(ctx)
	limiter.StartEviction(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func newDialogueTransport(cfg *config.Config, logger *slog.Logger, checks map[string]api.Check) (agent.Dialogue, error) {
	if cfg.Dialogue.Transport == config.TransportGRPC {
		slog.Info("Connecting to dialogue service via gRPC", "address", cfg.Dialogue.GrpcAddr)
		client, err := agent.NewGrpcClient(agent.DefaultGrpcClientConfig(cfg.Dialogue.GrpcAddr), logger)
		if err != nil {
			return nil, err
		}
		checks["dialogue"] = client.Health
		return client, nil
	}

	slog.Info("Using dialogue service over HTTP", "url", cfg.Dialogue.URL)
	return agent.NewHTTPClient(agent.HTTPClientConfig{
		BaseURL:        cfg.Dialogue.URL,
		RequestTimeout: cfg.CallTimeout,
		RatePerSecond:  cfg.Dialogue.RateLimit,
		Burst:          cfg.Dialogue.RateBurst,
	}, logger)
}

// newRunner builds the configured runner. The returned cleanup releases
// backend resources.
func newRunner(ctx context.Context, cfg *config.Config, tasks *catalog.Catalog, reviewer runner.Reviewer, logger *slog.Logger) (runner.Runner, func(), error) {
	if cfg.Runner.Backend == config.BackendRemote {
		slog.Info("Using remote code runner", "url", cfg.Runner.URL)
		r, err := runner.NewHTTPClient(cfg.Runner.URL, cfg.CallTimeout, logger)
		return r, func() {}, err
	}

	mgr, err := container.NewDockerManager(cfg.Runner.Image, cfg.Runner.Runtime)
	if err != nil {
		return nil, nil, err
	}
	if err := mgr.EnsureImage(ctx); err != nil {
		_ = mgr.Close()
		return nil, nil, err
	}
	container.StartReaper(ctx, mgr, cfg.Runner.MaxAge)
	slog.Info("Sandbox runner ready", "image", cfg.Runner.Image, "runtime", cfg.Runner.Runtime)

	cfgSandbox := runner.SandboxConfig{CaseTimeout: cfg.Runner.TestTimeout}
	if cfg.Runner.Review {
		cfgSandbox.Reviewer = reviewer
	}
	cleanup := func() {
		if err := mgr.Close(); err != nil {
			slog.Error("Failed to close container manager", "error", err)
		}
	}
	return runner.NewSandbox(mgr, tasks, cfgSandbox, logger), cleanup, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
