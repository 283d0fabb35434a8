// Package preview serves generated documentation to browsers and pushes
// regeneration progress to them over a websocket.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

// PortAttempts is how many consecutive ports Start tries.
const PortAttempts = 20

const listenHost = "127.0.0.1"

// Options configure a Server.
type Options struct {
	Root     string
	Logger   *slog.Logger
	Recorder metrics.Recorder
	// Registry, when set, is served on /metrics.
	Registry *prom.Registry
}

// Server is the preview HTTP server. The zero value is not usable; call New.
type Server struct {
	logger   *slog.Logger
	hub      *Hub
	registry *prom.Registry
	errs     *ferrors.HTTPErrorAdapter

	rootMu sync.RWMutex
	root   string

	mu      sync.Mutex
	httpSrv *http.Server
	ln      net.Listener
	port    int
}

// New returns a stopped Server serving root.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logfields.Component("preview"))
	return &Server{
		logger:   logger,
		hub:      NewHub(opts.Recorder, logger),
		registry: opts.Registry,
		errs:     ferrors.NewHTTPErrorAdapter(logger),
		root:     opts.Root,
	}
}

// Start binds the first free port in desiredPort .. desiredPort+PortAttempts-1
// on the loopback interface and begins serving. Port 0 binds an ephemeral
// port. Calling Start on a running server returns its URL.
func (s *Server) Start(_ context.Context, desiredPort int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return s.urlLocked(), nil
	}

	ln, err := listen(desiredPort)
	if err != nil {
		return "", err
	}

	s.hub.Reopen()
	s.port = ln.Addr().(*net.TCPAddr).Port
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Preview server stopped", logfields.Error(err))
		}
	}()

	url := s.urlLocked()
	s.logger.Info("Preview server listening", logfields.URL(url), logfields.Root(s.Root()))
	return url, nil
}

func listen(desiredPort int) (net.Listener, error) {
	if desiredPort == 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort(listenHost, "0"))
		if err != nil {
			return nil, ferrors.ServerError("failed to bind preview server").WithCause(err).Build()
		}
		return ln, nil
	}

	var lastErr error
	for port := desiredPort; port < desiredPort+PortAttempts && port <= 65535; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(listenHost, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, ferrors.ServerError(fmt.Sprintf("no free port in %d-%d", desiredPort, desiredPort+PortAttempts-1)).
		WithCause(lastErr).
		WithContext("port", desiredPort).
		Build()
}

// Restart closes every client and the listener, then starts on port.
func (s *Server) Restart(ctx context.Context, port int) (string, error) {
	if err := s.Close(); err != nil {
		return "", err
	}
	return s.Start(ctx, port)
}

// Close disconnects push clients and stops the listener. It is safe to call
// more than once and on a server that never started.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, ln := s.httpSrv, s.ln
	s.httpSrv, s.ln = nil, nil
	s.port = 0
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	// Hijacked websocket conns are not tracked by http.Server.
	s.hub.Shutdown()
	if err := srv.Close(); err != nil {
		return ferrors.ServerError("failed to close preview server").WithCause(err).Build()
	}
	// Serve may not have taken ownership of ln yet; the port must be free on return.
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return ferrors.ServerError("failed to close preview listener").WithCause(err).Build()
	}
	s.logger.Info("Preview server stopped")
	return nil
}

// Running reports whether the server is listening.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpSrv != nil
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the base URL, or "" when stopped.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv == nil {
		return ""
	}
	return s.urlLocked()
}

func (s *Server) urlLocked() string {
	return "http://" + net.JoinHostPort(listenHost, strconv.Itoa(s.port))
}

// SetRoot changes the directory served. Requests already in flight finish
// against the old root.
func (s *Server) SetRoot(root string) {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()
	if s.root != root {
		s.logger.Info("Preview root changed", logfields.Root(root))
	}
	s.root = root
}

// Root returns the directory served.
func (s *Server) Root() string {
	s.rootMu.RLock()
	defer s.rootMu.RUnlock()
	return s.root
}

// Broadcast implements push.Broadcaster.
func (s *Server) Broadcast(e push.Event) { s.hub.Broadcast(e) }

// NotifyWillCompute tells clients a regeneration started.
func (s *Server) NotifyWillCompute() { s.hub.Broadcast(push.WillCompute()) }

// NotifyDidCompute tells clients a regeneration finished.
func (s *Server) NotifyDidCompute() { s.hub.Broadcast(push.DidCompute()) }

// NotifyLog forwards one line of generator output.
func (s *Server) NotifyLog(kind push.Kind, msg string) {
	s.hub.Broadcast(push.Event{Kind: kind, Value: msg})
}

// HasActiveConnection reports whether any browser is connected.
func (s *Server) HasActiveConnection() bool { return s.hub.Count() > 0 }

// ConnectionCount reports connected browsers.
func (s *Server) ConnectionCount() int { return s.hub.Count() }
