package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/arith/driver"
)

// ArithServer serves the compile service over Connect (HTTP/JSON).
type ArithServer struct {
	driver *driver.Driver
	mux    *http.ServeMux
	log    commonlog.Logger

	httpServer *http.Server
}

// ServerOption configures an ArithServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	readTimeout time.Duration
}

// WithReadTimeout bounds how long a request body may take to arrive.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.readTimeout = d }
}

// New creates an ArithServer compiling through d.
func New(d *driver.Driver, opts ...ServerOption) *ArithServer {
	cfg := &serverConfig{readTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &ArithServer{
		driver: d,
		mux:    http.NewServeMux(),
		log:    commonlog.GetLogger("arith.server"),
	}

	path, handler := NewCompileServiceHandler(NewCompileService(d))
	s.mux.Handle(path, handler)

	s.httpServer = &http.Server{
		Handler:     s.mux,
		ReadTimeout: cfg.readTimeout,
	}
	return s
}

// Handler returns the HTTP handler with every service mounted.
func (s *ArithServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *ArithServer) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr
	s.log.Noticef("arith server listening on %s", addr)
	s.log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, CompileServiceCompile)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the server, waiting for in-flight requests.
func (s *ArithServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
