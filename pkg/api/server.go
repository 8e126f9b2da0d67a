// Package api serves read-only HTTP access to a finalized container file:
// header and index inspection plus block and byte-range reads, decompressing
// only what each request touches.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmorran/ancf/pkg/blockfile"
)

// Router builds the chi router for a server, wiring middleware, metrics and
// every route. Split from StartServer so tests can drive it with httptest.
func Router(server *Server) http.Handler {
	metrics := server.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if server.config.APIKey != "" {
			r.Use(apiKeyMiddleware(server.config.APIKey))
		}

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Container reads
		r.Get("/info", metrics.InstrumentHandler("GET", "/api/v1/info", server.handleInfo))
		r.Get("/blocks", metrics.InstrumentHandler("GET", "/api/v1/blocks", server.handleListBlocks))
		r.Get("/blocks/{index}", metrics.InstrumentHandler("GET", "/api/v1/blocks/{index}", server.handleReadBlock))
		r.Get("/range", metrics.InstrumentHandler("GET", "/api/v1/range", server.handleReadRange))
	})

	return r
}

// StartServer opens the container at path and serves it until the listener
// fails.
func StartServer(path string, config ServerConfig) error {
	reader, err := blockfile.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening container: %w", err)
	}
	defer reader.Close()

	metrics := NewMetrics()
	server := NewServer(reader, path, config, metrics)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	fmt.Printf("Serving %s on http://%s/api/v1\n", path, addr)
	fmt.Printf("Metrics available at: http://%s/metrics\n", addr)
	return http.ListenAndServe(addr, Router(server))
}
