package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/channel-music/channel/internal/api"
	"github.com/channel-music/channel/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIServerConfig struct {
	Addr           string
	MaxUploadSize  int64
	AllowedOrigins []string
}

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(lib api.Library, hub *ws.Hub, cfg APIServerConfig) *APIServer {
	server := ws.NewServer(hub, originChecker(cfg.AllowedOrigins))
	apiHandlers := api.New(lib, cfg.MaxUploadSize)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", api.HealthHandler)

	mux.HandleFunc("POST /api/songs", apiHandlers.UploadSongHandler)
	mux.HandleFunc("GET /api/songs", apiHandlers.ListSongsHandler)
	mux.HandleFunc("GET /api/songs/{id}", apiHandlers.GetSongHandler)
	mux.HandleFunc("GET /api/songs/{id}/stream", apiHandlers.StreamSongHandler)
	mux.HandleFunc("DELETE /api/songs/{id}", apiHandlers.DeleteSongHandler)

	// WebSocket endpoint
	mux.HandleFunc("GET /api/events", server.HandleConnections)

	handler := chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Range", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Length", "Content-Range"},
			MaxAge:         300,
		}),
	).Handler(mux)

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

func (s *APIServer) Start() error {
	log.Printf("Server started on %s", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
