package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/concept"
	"github.com/videostack/storyboard-agent/internal/editor"
	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ConfigStore reads agent settings such as the API auth token.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
}

type ServerConfig struct {
	Port int

	// Context outlives single requests; the poll timer started over HTTP runs on it.
	Context context.Context

	Store       *storyboard.Store
	Editor      *editor.Editor
	Storyboards cloud.StoryboardService
	Concepts    *concept.Service
	Generation  *generation.Service
	Runner      *generation.Runner
	Settings    ConfigStore
	ExportDir   string

	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
