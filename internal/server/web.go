package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
)

// WebServer serves the scheduler over HTTP:
//
//	/jsonrpc      JSON-RPC 2.0 over HTTP POST
//	/jsonrpc/ws   JSON-RPC 2.0 over WebSocket, with push notifications
//	/api/v1/      REST facade
//	/metrics      Prometheus scrape endpoint
//
// Every endpoint but /metrics requires the RPC secret as a bearer token.
type WebServer struct {
	addr     string
	l        *log.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	metrics  http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewWebServer creates a WebServer listening on addr. notifier and metrics
// may be nil.
func NewWebServer(l *log.Logger, addr string, rpc *RPCServer, notifier *RPCNotifier, metrics http.Handler) *WebServer {
	return &WebServer{addr: addr, l: l, rpc: rpc, notifier: notifier, metrics: metrics}
}

func (s *WebServer) handler() http.Handler {
	mux := http.NewServeMux()
	if s.rpc.secret == "" {
		s.l.Println("RPC secret not set, JSON-RPC and REST endpoints disabled")
	}
	mux.Handle("/jsonrpc", requireToken(s.rpc.secret, s.rpc.bridge))
	mux.Handle("/jsonrpc/ws", requireToken(s.rpc.secret, s.wsHandler()))
	mux.Handle("/api/v1/", newRESTHandler(s.rpc))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Listen binds the listen address. It is called by Start and exposed so
// callers can learn the bound address before serving.
func (s *WebServer) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start serves until Shutdown is called.
func (s *WebServer) Start() error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.serve()
}

// Serve serves on ln, which replaces any listener bound by Listen.
func (s *WebServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.listener != nil && s.listener != ln {
		_ = s.listener.Close()
	}
	s.listener = ln
	s.mu.Unlock()
	return s.serve()
}

func (s *WebServer) serve() error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:  s.handler(),
		ErrorLog: s.l,
	}
	srv, ln := s.server, s.listener
	s.mu.Unlock()

	s.l.Printf("Listening on http://%s", ln.Addr())
	err := srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the web server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		if s.listener != nil {
			err := s.listener.Close()
			s.listener = nil
			return err
		}
		return nil
	}
	return s.server.Shutdown(ctx)
}
