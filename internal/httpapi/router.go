package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := a.allowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Use(httprate.Limit(300, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// credential endpoints get a tighter limit than the rest of the API
			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(20, time.Minute))
				r.Post("/signup", a.handleSignup)
				r.Post("/login", a.handleLogin)
				r.Post("/forgot-password", a.handleForgotPassword)
				r.Post("/verify-otp", a.handleVerifyOTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(a.requireAuth)
				r.Get("/users", a.handleListUsers)
				r.Get("/users/search", a.handleSearchUsers)
				r.Get("/users/find-by-email", a.handleFindByEmail)
				r.Get("/users/find-by-name", a.handleFindByName)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", a.handleListProjects)
				r.Post("/", a.handleCreateProject)
				r.Get("/{id}", a.handleGetProject)
				r.Delete("/{id}", a.handleDeleteProject)
				r.Post("/{id}/assign", a.handleAddCollaborators)
				r.Post("/{id}/unassign", a.handleRemoveCollaborators)
				r.Get("/{id}/collaborators", a.handleListCollaborators)
			})

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", a.handleListIssues)
				r.Post("/", a.handleCreateIssue)
				r.Patch("/{id}", a.handleUpdateIssue)
				r.Delete("/{id}", a.handleDeleteIssue)
				r.Post("/{id}/assign", a.handleAssignIssue)
				r.Post("/{id}/unassign", a.handleUnassignIssue)
			})

			if a.hub != nil {
				r.Method("GET", "/events", a.hub)
			}
		})
	})

	return r
}
