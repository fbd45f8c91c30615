package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured frontends. Preflight requests are answered
// directly so they never reach the rate limiters or auth.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
