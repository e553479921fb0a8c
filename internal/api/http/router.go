package http

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/mraskin/userdir-server/internal/api/http/handler"
	"github.com/mraskin/userdir-server/internal/api/http/middleware"
	"github.com/mraskin/userdir-server/internal/logger"
)

// NewRouter wires the directory endpoints behind CORS and request logging.
func NewRouter(users *handler.Users, events *handler.Events, logger *logger.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("GET /api/v1/users", users.List)
	mux.HandleFunc("POST /api/v1/users", users.Create)
	mux.HandleFunc("GET /api/v1/users/{id}", users.Get)
	mux.HandleFunc("PATCH /api/v1/users/{id}", users.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", users.Delete)
	mux.HandleFunc("POST /api/v1/users/{id}/follow/{targetID}", users.Follow)
	mux.HandleFunc("DELETE /api/v1/users/{id}/follow/{targetID}", users.Unfollow)
	mux.HandleFunc("POST /api/v1/users/{id}/avatar", users.UploadAvatar)
	mux.HandleFunc("GET /api/v1/avatars/{key}", users.GetAvatar)
	mux.HandleFunc("GET /api/v1/events", events.Stream)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})

	return middleware.NewLogging(logger).Handler(c.Handler(mux))
}
