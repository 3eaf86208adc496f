package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// OriginGuard admits requests without an Origin (or with the opaque "null"
// origin) untouched, lets the single allowed origin through with CORS headers
// applied, and rejects every other origin with 403. An empty allowed origin
// rejects all cross-origin callers.
func OriginGuard(allowed string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{allowed},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return func(next http.Handler) http.Handler {
		withCORS := c.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case origin == "" || origin == "null":
				next.ServeHTTP(w, r)
			case allowed != "" && origin == allowed:
				// preflight responses overwrite these with the requested method and headers
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				withCORS.ServeHTTP(w, r)
			default:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"Forbidden: Unauthorized origin"}`))
			}
		})
	}
}
