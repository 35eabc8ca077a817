package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const (
	replayedHeader = "Idempotent-Replayed"
	corsMaxAge     = 300
)

var devOrigins = []string{"http://localhost:3000"}

// CORS lets the storefront and the staff dashboard call the API from the browser.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, replayedHeader},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}
