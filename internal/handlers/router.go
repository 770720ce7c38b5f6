package handlers

import (
	"net/http"

	"lost-found-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Users    *UserHandler
	Items    *ItemHandler
	Claims   *ClaimHandler
	Auth     middleware.TokenValidator
	Gatherer prometheus.Gatherer
}

// NewRouter builds the HTTP routes
func NewRouter(h Router) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", h.Users.Signup)
		r.Post("/auth/login", h.Users.Login)
		r.Post("/auth/logout", h.Users.Logout)
		r.Get("/items/recent", h.Items.ListRecent)
		r.Get("/items/{item_id}", h.Items.GetItem)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(h.Auth))
			r.Post("/items", h.Items.SubmitReport)
			r.Get("/items/{item_id}/claims", h.Claims.ListClaims)
			r.Post("/claims", h.Claims.SubmitClaim)
			r.Get("/me", h.Users.Me)
			r.Patch("/me", h.Users.UpdateProfile)
			r.Post("/me/avatar", h.Users.UploadAvatar)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/users", h.Users.ListUsers)
				r.Delete("/users/{user_id}", h.Users.DeleteUser)
				r.Delete("/items/{item_id}", h.Items.DeleteItem)
				r.Post("/items/{item_id}/close", h.Items.CloseItem)
				r.Post("/claims/{claim_id}/review", h.Claims.ReviewClaim)
			})
		})
	})

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
