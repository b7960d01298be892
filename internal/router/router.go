package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tudasmester/elira-backend/internal/config"
	"github.com/tudasmester/elira-backend/internal/handlers"
	"github.com/tudasmester/elira-backend/internal/middleware"
	"github.com/tudasmester/elira-backend/internal/realtime"
	"github.com/tudasmester/elira-backend/internal/services"
	"github.com/tudasmester/elira-backend/internal/session"
	"github.com/tudasmester/elira-backend/internal/store"
)

// New wires middleware, handlers, and the realtime endpoint into the HTTP router.
func New(cfg *config.Config, st *store.Store, tracker *session.Tracker, broker *realtime.Broker) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, st, authService, tracker)
	sessionHandler := handlers.NewSessionHandler(cfg, tracker)
	courseHandler := handlers.NewCourseHandler(st, broker)
	lessonHandler := handlers.NewLessonHandler(st, broker)
	enrollmentHandler := handlers.NewEnrollmentHandler(st, broker)
	statsHandler := handlers.NewStatsHandler(broker)

	authRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	authed := middleware.AuthMiddleware(authService)
	activity := middleware.ActivityMiddleware(tracker)

	// WebSocket endpoint for change notifications
	r.Method(http.MethodGet, "/ws", realtime.NewHandler(broker, authService, cfg.CORSAllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Registration and login (rate limited)
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Session lifecycle. Status and logout skip the activity middleware:
		// polling the warning banner must not keep the session alive.
		r.Route("/session", func(r chi.Router) {
			r.Use(authed)
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Get("/status", sessionHandler.Status)
			r.Post("/logout", sessionHandler.Logout)
			r.With(activity).Post("/extend", sessionHandler.Extend)
		})

		// Course catalog: public reads, admin mutations.
		r.Route("/courses", func(r chi.Router) {
			optional := middleware.OptionalAuthMiddleware(authService)
			r.With(optional).Get("/", courseHandler.List)
			r.With(optional).Get("/{id}", courseHandler.Get)
			r.With(optional).Get("/{id}/lessons", lessonHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(authed, middleware.UpdateRequestContextMiddleware, activity, middleware.AdminOnlyMiddleware)
				r.Post("/", courseHandler.Create)
				r.Put("/{id}", courseHandler.Update)
				r.Delete("/{id}", courseHandler.Delete)
				r.Post("/{id}/lessons", lessonHandler.Create)
			})
		})

		// Lesson mutations (admin only)
		r.Route("/lessons", func(r chi.Router) {
			r.Use(authed, middleware.UpdateRequestContextMiddleware, activity, middleware.AdminOnlyMiddleware)
			r.Put("/{lessonId}", lessonHandler.Update)
			r.Delete("/{lessonId}", lessonHandler.Delete)
		})

		// Enrollments (authenticated)
		r.Route("/enrollments", func(r chi.Router) {
			r.Use(authed, middleware.UpdateRequestContextMiddleware, activity)
			r.Get("/", enrollmentHandler.List)
			r.Post("/", enrollmentHandler.Create)
			r.Delete("/{id}", enrollmentHandler.Delete)
		})

		// Operational visibility (admin only)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authed, middleware.UpdateRequestContextMiddleware, activity, middleware.AdminOnlyMiddleware)
			r.Get("/connections", statsHandler.Connections)
		})
	})

	return r
}
