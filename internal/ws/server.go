package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	hub      *Hub
	upgrader *websocket.Upgrader
}

// NewServer creates the websocket endpoint. checkOrigin may be nil to
// accept any origin.
func NewServer(hub *Hub, checkOrigin func(r *http.Request) bool) *Server {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Server{
		hub: hub,
		upgrader: &websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("error upgrading to websocket", "error", err)
		return
	}

	connID := uuid.NewString()
	slog.Debug("websocket connected", "conn_id", connID, "remote_addr", r.RemoteAddr)

	if err := NewConnection(s.hub, conn, connID).Handle(r.Context()); err != nil {
		slog.Debug("websocket closed", "conn_id", connID, "error", err)
	}
}
