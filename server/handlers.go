// File: server/handlers.go
package server

import (
	"encoding/json"
	"net/http"

	"github.com/luarena/server/auth"
	"github.com/luarena/server/game"
	"github.com/luarena/server/protocol"
)

// handlePlay upgrades an authenticated player connection. The token is
// verified before the upgrade so unauthorized clients get a plain 401
// instead of a websocket handshake.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		s.unauthorized(w, err)
		return
	}
	id, profile, err := s.verifier.VerifyPlayer(token)
	if err != nil {
		s.unauthorized(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	props := game.NewPlayerSessionProps(id, profile, conn, s.coordinator, s.buffer, s.log)
	if pid := s.actors.Spawn(props); pid == nil {
		conn.Close()
	}
}

// handleView upgrades a read-only viewer connection.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		s.unauthorized(w, err)
		return
	}
	id, err := s.verifier.VerifyViewer(token)
	if err != nil {
		s.unauthorized(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	props := game.NewViewerSessionProps(id, conn, s.coordinator, s.log)
	if pid := s.actors.Spawn(props); pid == nil {
		conn.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) unauthorized(w http.ResponseWriter, err error) {
	s.log.Warn("rejected connection", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(protocol.NewError(
		protocol.ErrInvalidJWTToken, "Invalid JWT Token", err.Error()))
}
