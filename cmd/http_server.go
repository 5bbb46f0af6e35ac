package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/lingkungan/api"
	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/approval"
	approvalPostgres "github.com/frahmantamala/lingkungan/internal/approval/postgres"
	"github.com/frahmantamala/lingkungan/internal/auth"
	"github.com/frahmantamala/lingkungan/internal/core/events"
	"github.com/frahmantamala/lingkungan/internal/revalidate"
	"github.com/frahmantamala/lingkungan/internal/transport/middleware"
	"github.com/frahmantamala/lingkungan/internal/transport/rest"
	"github.com/frahmantamala/lingkungan/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *Database
	Router   *chi.Mux
	EventBus *events.EventBus
	Logger   *slog.Logger
	// StopCleanup ends the view cache's expiry sweep.
	StopCleanup func()
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if deps.StopCleanup != nil {
			deps.StopCleanup()
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config

	loc, err := cfg.Approval.Location()
	if err != nil {
		return fmt.Errorf("invalid approval timezone: %w", err)
	}
	resetPolicy, err := approval.ParseResetPolicy(cfg.Approval.ResetPolicy)
	if err != nil {
		return err
	}

	viewCache := revalidate.NewViewCache(cfg.Approval.ViewCacheSize, cfg.Approval.ViewCacheTTL)
	notifier := revalidate.NewNotifier(viewCache, deps.Logger)
	notifier.Subscribe(deps.EventBus)
	deps.StopCleanup = viewCache.StartCleanup(cfg.Approval.ViewCacheTTL)

	approvalRepo := approvalPostgres.NewApprovalRepository(deps.DB.Gorm)
	statsReader := approvalPostgres.NewStatsReader(deps.DB.SQLX)
	approvalService := approval.NewService(approvalRepo, statsReader, deps.Logger,
		approval.WithPublisher(deps.EventBus),
		approval.WithLocation(loc),
		approval.WithResetPolicy(resetPolicy),
	)
	approvalHandler := approval.NewHandler(approval.NewActions(approvalService, deps.Logger), viewCache)

	tokens := auth.NewTokenManager(cfg.Security)
	rbac := auth.NewRBACAuthorization(tokens, auth.NewPermissionChecker(), deps.Logger)

	var validator *middleware.OpenAPIValidator
	if cfg.Server.ValidateRequests {
		validator, err = middleware.NewOpenAPIValidator(api.OpenAPISpec, rest.APIBasePath, deps.Logger)
		if err != nil {
			return err
		}
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.SQLX.DB, rest.Handlers{
		Approval:  approvalHandler,
		RBAC:      rbac,
		Validator: validator,
	}, deps.Logger)

	deps.Logger.Info("routes registered",
		"reset_policy", string(resetPolicy),
		"timezone", loc.String(),
		"validate_requests", cfg.Server.ValidateRequests)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := bootstrap()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := openDatabase(config.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
	}, nil
}
