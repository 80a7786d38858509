// Package server assembles the tool bridge: the registered tool catalog,
// the dispatcher, and the two transports it can be served over.
package server

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"poke-mcp/internal/poke"
	"poke-mcp/internal/tool"
)

// Config contains server configuration values such as the provider address
// and session lifecycle bounds.
type Config struct {
	PokeBaseURL string
	PokeAPIKey  string
	// ShutdownGrace bounds how long streaming-http shutdown waits for
	// draining sessions. Zero selects the default.
	ShutdownGrace time.Duration
	// SessionIdleTimeout drains sessions idle for this long. Zero disables
	// idle sweeping.
	SessionIdleTimeout time.Duration
}

// Server owns the tool registry, the dispatcher, and the provider client.
// The same tool set is exposed regardless of transport.
type Server struct {
	cfg        Config
	registry   *tool.Registry
	dispatcher *tool.Dispatcher
	poke       *poke.Client
	log        *logrus.Entry
}

// New constructs a Server with the tool catalog registered.
func New(cfg Config) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		registry: tool.NewRegistry(),
		poke:     poke.New(cfg.PokeBaseURL, cfg.PokeAPIKey, nil),
		log:      logrus.WithField("component", "server"),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.dispatcher = tool.NewDispatcher(s.registry)
	return s, nil
}

// Registry exposes the registered tool catalog.
func (s *Server) Registry() *tool.Registry { return s.registry }

// Dispatcher exposes the dispatch pipeline.
func (s *Server) Dispatcher() *tool.Dispatcher { return s.dispatcher }

// Close releases the provider client. Safe to call more than once; the
// streaming-http path also releases it through the session manager.
func (s *Server) Close() error { return s.poke.Close() }

// RunStandardStream serves the single-threaded standard-stream transport
// until the input stream ends.
func (s *Server) RunStandardStream(ctx context.Context, in io.Reader, out io.Writer) error {
	defer s.Close()
	return NewStandardStreamTransport(s.dispatcher, in, out).Run(ctx)
}

// RunStreamingHTTP serves the concurrent streaming-http transport on addr
// until ctx is cancelled. The session manager owns the provider client's
// release.
func (s *Server) RunStreamingHTTP(ctx context.Context, addr string) error {
	sessions := NewSessionManager(SessionManagerConfig{
		Grace:       s.cfg.ShutdownGrace,
		IdleTimeout: s.cfg.SessionIdleTimeout,
		Closer:      s.poke,
	})
	return NewStreamingHTTPTransport(s.registry, s.dispatcher, sessions).Run(ctx, addr)
}
