// Package gateway exposes the chat orchestrator and its supporting
// stores over HTTP. The chat endpoint streams run events as NDJSON.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudquill/cloudquill/internal/audit"
	"github.com/cloudquill/cloudquill/internal/chat"
	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/internal/sessions"
	"github.com/cloudquill/cloudquill/pkg/models"
)

// MaxMessageLength bounds an inbound chat message.
const MaxMessageLength = 1000

// ChatRunner runs one conversational turn and streams its events.
type ChatRunner interface {
	Run(ctx context.Context, req chat.Request) <-chan models.Event
}

// HistoryReader serves the operation history endpoint.
type HistoryReader interface {
	History(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

// Config configures the HTTP server.
type Config struct {
	Host string
	Port int

	// ShutdownTimeout bounds graceful shutdown. Default: 5 seconds.
	ShutdownTimeout time.Duration
}

// Server is the HTTP surface.
type Server struct {
	config    Config
	runner    ChatRunner
	sessions  *sessions.Store
	knowledge chat.KnowledgeSearcher
	history   HistoryReader
	metrics   *observability.Metrics
	logger    *observability.Logger

	httpServer *http.Server
	listener   net.Listener
}

// ServerOptions wires a Server.
type ServerOptions struct {
	Config    Config
	Runner    ChatRunner
	Sessions  *sessions.Store
	Knowledge chat.KnowledgeSearcher
	History   HistoryReader
	Metrics   *observability.Metrics
	Logger    *observability.Logger
}

// NewServer creates the HTTP server. Runner and Sessions are required.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Runner == nil {
		return nil, errors.New("gateway: chat runner is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("gateway: session store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if opts.Config.ShutdownTimeout <= 0 {
		opts.Config.ShutdownTimeout = 5 * time.Second
	}

	return &Server{
		config:    opts.Config,
		runner:    opts.Runner,
		sessions:  opts.Sessions,
		knowledge: opts.Knowledge,
		history:   opts.History,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleClearSession)
	mux.HandleFunc("POST /knowledge/search", s.handleKnowledgeSearch)
	mux.HandleFunc("GET /operations/history", s.handleOperationHistory)
	mux.HandleFunc("GET /health", s.handleHealth)

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return mux
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "http server error", "error", err)
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
