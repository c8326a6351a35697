package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskmgmt-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskmgmt-api/internal/api/middleware"
	"github.com/phrazzld/taskmgmt-api/internal/domain"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	taskHandler := api.NewTaskHandler(
		app.taskService,
		app.assignmentService,
		app.userService,
		app.logger,
	)
	userHandler := api.NewUserHandler(app.userService, app.taskService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Task endpoints
			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks/search", taskHandler.SearchTasks)
			r.Get("/tasks/completed/{completed}", taskHandler.ListTasksByCompleted)
			r.Get("/tasks/priority/{priority}", taskHandler.ListTasksByPriority)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Put("/tasks/{id}", taskHandler.UpdateTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)
			r.Patch("/tasks/{id}/complete", taskHandler.CompleteTask)
			r.Put("/tasks/{id}/assign/{userId}", taskHandler.AssignTask)
			r.Delete("/tasks/{id}/assign", taskHandler.UnassignTask)

			// User endpoints
			r.Get("/users", userHandler.ListUsers)
			r.Get("/users/me", userHandler.GetCurrentUser)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Get("/users/{id}/tasks", userHandler.ListUserTasks)
			r.Put("/users/{id}", userHandler.UpdateUserProfile)
			r.Patch("/users/{id}/password", userHandler.UpdateUserPassword)

			// Role management is reserved for team leaders
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireRole(string(domain.RoleTeamLeader)))
				r.Patch("/users/{id}/role", userHandler.UpdateUserRole)
				r.Delete("/users/{id}", userHandler.DeleteUser)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
