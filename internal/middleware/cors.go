package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS permits the single configured frontend origin. Credentials must be
// allowed because the session travels in a cookie.
func CORS(frontendOrigin string) func(http.Handler) http.Handler {
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{frontendOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
