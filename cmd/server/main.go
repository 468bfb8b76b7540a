// VIGIL - wildfire risk planning assistant server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/vigil/internal/agent"
	"github.com/ashureev/vigil/internal/analyst"
	"github.com/ashureev/vigil/internal/api"
	"github.com/ashureev/vigil/internal/classifier"
	"github.com/ashureev/vigil/internal/config"
	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/identity"
	"github.com/ashureev/vigil/internal/middleware"
	"github.com/ashureev/vigil/internal/orchestrator"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/resolver"
	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Warehouse.
	wh, err := warehouse.Open(cfg.DBPath, warehouse.Options{
		QueryTimeout: cfg.QueryTimeout,
		Logger:       logger,
	})
	if err != nil {
		slog.Error("Failed to open warehouse", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := wh.Close(); closeErr != nil {
			slog.Error("Failed to close warehouse", "error", closeErr)
		}
	}()

	if err := wh.Ping(context.Background()); err != nil {
		slog.Error("Warehouse health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Warehouse connected", "path", cfg.DBPath)

	if cfg.WarehouseSeed {
		seeded, err := wh.Seed(context.Background(), time.Now())
		if err != nil {
			slog.Error("Failed to seed warehouse", "error", err)
			os.Exit(1)
		}
		slog.Info("Warehouse seed checked", "seeded", seeded)
	}

	// SQL generator (optional).
	var generator resolver.SQLGenerator
	var analystChecker api.AnalystChecker
	if cfg.AnalystAddr != "" {
		slog.Info("Connecting to SQL analyst via gRPC", "address", cfg.AnalystAddr)
		client, err := analyst.New(analyst.DefaultConfig(cfg.AnalystAddr), logger)
		if err != nil {
			slog.Warn("Failed to connect to SQL analyst, generated SQL will be disabled", "error", err)
		} else {
			defer client.Close()
			generator = client
			analystChecker = client
		}
	}
	if generator == nil {
		slog.Info("Generated SQL disabled (ANALYST_ADDR not set or connection failed)")
	}

	personas, err := domain.LoadPersonas()
	if err != nil {
		slog.Error("Failed to load personas", "error", err)
		os.Exit(1)
	}
	if _, ok := personas.Get(cfg.DefaultPersona); !ok {
		slog.Warn("Unknown default persona, using registry default",
			"persona", cfg.DefaultPersona, "fallback", personas.Default().ID)
	}

	// Sessions share the generators; each gets its own context.
	suite := reports.NewSuite(wh, season.SystemClock)
	res := resolver.New(wh, generator, logger)
	cls := classifier.Default()
	registry := orchestrator.NewRegistry(func() *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Deps{
			Suite:          suite,
			Resolver:       res,
			Classifier:     cls,
			Personas:       personas,
			DefaultPersona: cfg.DefaultPersona,
			Logger:         logger,
		})
	}, cfg.SessionTTL, logger)

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	// Handlers. The agent handler registers its cleanup callbacks on the
	// registry, so it must exist before the TTL worker starts.
	agentHandler := agent.NewHandler(registry, conversationLogger, cfg, logger)
	defer agentHandler.Close()

	apiHandler := api.NewHandler(api.Deps{
		Port:     wh,
		Suite:    suite,
		Personas: personas,
		Analyst:  analystChecker,
		Sessions: registry.Len,
		Logger:   logger,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(middleware.AllowedOrigins(cfg.FrontendURL, cfg.IsDevelopment())))
	r.Use(identity.Middleware)

	apiHandler.RegisterRoutes(r)
	agentHandler.RegisterRoutes(r)

	// Note: SSE connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := registry.StartTTLWorker(ctx, cfg.SweepInterval())
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL, "interval", cfg.SweepInterval())

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	<-sweeperDone

	slog.Info("Server stopped successfully")
}
