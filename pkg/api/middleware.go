package api

import "net/http"

// apiKeyMiddleware gates the container read routes behind one shared
// X-API-Key value. The gateway is read-only over a single file, so a static
// key is the whole auth model; /metrics stays outside it for scraping.
func apiKeyMiddleware(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Header.Get("X-API-Key") {
			case "":
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
			case want:
				next.ServeHTTP(w, r)
			default:
				sendError(w, "Invalid API key", http.StatusUnauthorized)
			}
		})
	}
}
