package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmgmt-api/internal/config"
	"github.com/phrazzld/taskmgmt-api/internal/dispatch"
	"github.com/phrazzld/taskmgmt-api/internal/events"
	"github.com/phrazzld/taskmgmt-api/internal/platform/postgres"
	"github.com/phrazzld/taskmgmt-api/internal/service"
	"github.com/phrazzld/taskmgmt-api/internal/service/auth"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	taskStore store.TaskStore
	userStore store.UserStore
	jobStore  dispatch.JobStore

	// Service interfaces
	jwtService        auth.JWTService
	passwordHasher    auth.PasswordHasher
	passwordVerifier  auth.PasswordVerifier
	taskService       service.TaskService
	assignmentService service.AssignmentService
	userService       service.UserService

	// Event system
	eventEmitter events.EventEmitter

	// Background notification delivery
	runner *dispatch.Runner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password hashing
	app.passwordHasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, dispatch.NewRecoveryFactory(logger))

	// Initialize the notification runner
	app.runner, err = setupRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup notification runner: %w", err)
	}

	// Initialize event emitter and route assignment events to the runner
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(dispatch.NewNotificationEventHandler(app.runner, logger))
	app.eventEmitter = emitter

	// Initialize task service
	app.taskService, err = service.NewTaskService(
		db,
		app.taskStore,
		app.userStore,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	// Initialize assignment service
	app.assignmentService, err = service.NewAssignmentService(
		db,
		app.taskStore,
		app.userStore,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}

	// Initialize user service
	app.userService = service.NewUserService(
		app.userStore,
		db,
		app.passwordHasher,
		app.passwordVerifier,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupRunner initializes and starts the background notification processor.
// Starting it recovers any jobs persisted by a previous run that never
// finished.
func setupRunner(app *application) (*dispatch.Runner, error) {
	runner := dispatch.NewRunner(app.jobStore, dispatch.RunnerConfig{
		WorkerCount: app.config.Dispatch.WorkerCount,
		QueueSize:   app.config.Dispatch.QueueSize,
		StuckJobAge: 30 * time.Minute,
	}, app.logger)

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start notification runner: %w", err)
	}

	return runner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the notification runner first so in-flight deliveries finish
	if app.runner != nil {
		app.runner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
