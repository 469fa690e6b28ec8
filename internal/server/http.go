package server

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/spanish-quiz/internal/config"
	"github.com/gokatarajesh/spanish-quiz/internal/logging"
)

// WSUpgrader handles WebSocket upgrades. Origin checks are done by CheckOrigin
// once ConfigureOrigins has run.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ConfigureOrigins restricts WebSocket upgrades to the CORS allow list. A "*"
// entry or an empty list allows every origin.
func ConfigureOrigins(origins []string) {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return
	}
	WSUpgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(mux *http.ServeMux)
}

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Options configures the API server.
type Options struct {
	// Middleware wraps every route, typically auth.AuthMiddleware.
	Middleware func(http.Handler) http.Handler
	Pingers    map[string]Pinger
	Routes     []Registrar
}

// NewHTTPServer wires base routes (health, metrics, dependency ping) and the
// feature registrars for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, opts Options) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		for name, ping := range opts.Pingers {
			if err := ping(ctx); err != nil {
				l := logging.FromContext(ctx)
				l.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
				http.Error(w, "upstream error", http.StatusBadGateway)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	for _, r := range opts.Routes {
		r.Register(mux)
	}

	var handler http.Handler = mux
	if opts.Middleware != nil {
		handler = opts.Middleware(handler)
	}
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)
	allowAll := slices.Contains(cfg.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(cfg.AllowedOrigins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", maxAge)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
