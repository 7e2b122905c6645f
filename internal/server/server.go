package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/config"
	"github.com/boardfree/board-server-go/internal/game"
)

var (
	_ game.NetworkLayer = (*Broadcaster)(nil)
	_ Sink              = (*Hub)(nil)
	_ GameController    = (*game.Engine)(nil)
)

// Server is the websocket front of a hosted match.
type Server struct {
	log  *zap.Logger
	cfg  config.ServerConfig
	hub  *Hub
	http *http.Server
}

// New wires the HTTP listener around the hub.
func New(cfg config.ServerConfig, hub *Hub, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		log: logger,
		cfg: cfg,
		hub: hub,
		http: &http.Server{
			Addr:    cfg.Address,
			Handler: mux,
		},
	}
}

// Start serves until the listener closes. Blocks.
func (s *Server) Start() error {
	s.log.Info("starting websocket server", zap.String("address", s.cfg.Address))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown closes subscriber connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.http.Shutdown(ctx)
}
