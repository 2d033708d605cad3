package apihttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
	"github.com/bayuairbender2950/youtube-to-url/internal/usecase"
)

type StreamUseCase interface {
	Plan(ctx context.Context, contentID string, quality domain.Quality) (usecase.StreamPlan, error)
	Open(ctx context.Context, plan usecase.StreamPlan) (io.ReadCloser, error)
	OpenRange(ctx context.Context, plan usecase.StreamPlan, start, end int64) (io.ReadCloser, error)
}

type HistoryStore interface {
	Upsert(ctx context.Context, rec domain.StreamRecord) error
	Get(ctx context.Context, contentID string) (domain.StreamRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.StreamRecord, error)
	Delete(ctx context.Context, contentID string) error
}

type Server struct {
	stream         StreamUseCase
	history        HistoryStore
	sessions       *sessionRegistry
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
	stop           chan struct{}
	closeOnce      sync.Once
}

type ServerOption func(*Server)

func WithHistory(store HistoryStore) ServerOption {
	return func(s *Server) {
		s.history = store
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(stream StreamUseCase, opts ...ServerOption) *Server {
	s := &Server{
		stream:   stream,
		sessions: newSessionRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()
	s.stop = make(chan struct{})
	go s.broadcastLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/video/", s.handleVideo)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/", s.handleHistoryByID)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "ytstream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeSessions": s.sessions.count(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()

	// New subscribers get the current picture immediately.
	s.broadcastSessions()
}

// broadcastLoop pushes session snapshots to websocket subscribers while
// streams run, so byte counters stay fresh between session events.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.sessions.count() > 0 {
				s.broadcastSessions()
			}
		case <-s.stop:
			return
		}
	}
}

// Close stops the broadcast loop and disconnects all websocket clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		if s.wsHub != nil {
			s.wsHub.Close()
		}
	})
}
