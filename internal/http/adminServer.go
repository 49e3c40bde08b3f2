package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/channel-music/channel/internal/api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type AdminServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

// NewAdminServer serves maintenance routes. It is meant to listen on a
// loopback address; every route still requires basic auth.
func NewAdminServer(lib api.Library, user string, passwordHash []byte, addr string) *AdminServer {
	adminHandler := api.NewAdminHandler(lib, user, passwordHash)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/prune", adminHandler.RequireAdmin(adminHandler.PruneHandler))
	mux.HandleFunc("DELETE /admin/songs/{id}", adminHandler.RequireAdmin(adminHandler.DeleteSongHandler))

	if addr == "" {
		addr = "localhost:8081"
	}

	return &AdminServer{
		server: &http.Server{
			Addr:    addr,
			Handler: chi.Chain(middleware.RequestID, requestLogger, middleware.Recoverer).Handler(mux),
		},
	}
}

func (s *AdminServer) Start() error {
	log.Printf("Admin API started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
