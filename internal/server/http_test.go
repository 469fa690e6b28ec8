package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/spanish-quiz/internal/config"
)

type echoRoutes struct{}

func (echoRoutes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Seen")))
	})
}

func testConfig() *config.App {
	return &config.App{
		HTTPAddr: "127.0.0.1:0",
		CORS: config.CORS{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"Authorization"},
			AllowCredentials: true,
			MaxAge:           600,
		},
	}
}

func TestHealthAndRoutes(t *testing.T) {
	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Options{
		Routes: []Registrar{echoRoutes{}},
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.Header.Set("X-Seen", "yes")
				next.ServeHTTP(w, r)
			})
		},
	})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/echo", nil))
	assert.Equal(t, "yes", rec.Body.String())
}

func TestPingReportsFailingDependency(t *testing.T) {
	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Options{
		Pingers: map[string]Pinger{
			"redis": func(context.Context) error { return errors.New("down") },
		},
	})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Options{Routes: []Registrar{echoRoutes{}}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/echo", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/v1/echo", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
