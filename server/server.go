// File: server/server.go
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/auth"
	"github.com/luarena/server/game"
	"github.com/luarena/server/utils"
)

// Server owns the HTTP layer: websocket upgrades for players and
// viewers, plus health and metrics endpoints.
type Server struct {
	cfg         utils.Config
	log         *slog.Logger
	actors      *actor.Engine
	coordinator *actor.PID
	buffer      *game.ActionBuffer
	verifier    *auth.Verifier
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

func New(cfg utils.Config, log *slog.Logger, actors *actor.Engine, coordinator *actor.PID, buffer *game.ActionBuffer) *Server {
	s := &Server{
		cfg:         cfg,
		log:         log,
		actors:      actors,
		coordinator: coordinator,
		buffer:      buffer,
		verifier:    auth.NewVerifier(cfg.JWTSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{auth.WSProtocol},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.Router(),
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/play", s.handlePlay)
		r.Get("/view", s.handleView)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe blocks serving HTTP or HTTPS per the configuration.
func (s *Server) ListenAndServe() error {
	if s.cfg.UseHTTPS {
		return s.httpServer.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
