// Package server exposes the keyscout JSON-RPC router on a single network
// port. Connections are split by protocol: gRPC health checks, HTTP
// (health, websocket, SSE and streamable endpoints) and raw line-delimited
// JSON-RPC over TCP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/thebtf/keyscout/internal/mcp"
)

const (
	// DefaultHTTPTimeout bounds short request/response HTTP routes.
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout is the budget for draining HTTP handlers.
	ShutdownTimeout = 5 * time.Second

	// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultMatchTimeout bounds how long a new connection may stay silent
	// while its protocol is sniffed.
	DefaultMatchTimeout = 3 * time.Second
)

// Options configures a Server.
type Options struct {
	AgentName    string
	Version      string
	MaxBodyBytes int64
	// MatchTimeout limits protocol sniffing. A client that sends nothing
	// for this long is dropped.
	MatchTimeout time.Duration
}

// Server serves the JSON-RPC router over every supported transport.
type Server struct {
	rpc        *mcp.Server
	ws         *mcp.WSHandler
	sse        *mcp.SSEHandler
	streamable *mcp.StreamableHandler
	router     *chi.Mux
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	tcpConns   map[net.Conn]struct{}
	opts       Options
	tcpMu      sync.Mutex
	tcpWG      sync.WaitGroup
	closing    bool // guarded by tcpMu
}

// New wires the transports around rpc.
func New(rpc *mcp.Server, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.AgentName == "" {
		opts.AgentName = mcp.DefaultAgentName
	}
	if opts.MatchTimeout <= 0 {
		opts.MatchTimeout = DefaultMatchTimeout
	}

	s := &Server{
		rpc:        rpc,
		ws:         mcp.NewWSHandler(rpc, opts.MaxBodyBytes),
		sse:        mcp.NewSSEHandler(rpc),
		streamable: mcp.NewStreamableHandler(rpc),
		router:     chi.NewRouter(),
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		tcpConns:   make(map[net.Conn]struct{}),
		opts:       opts,
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(opts.AgentName, healthpb.HealthCheckResponse_SERVING)

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures HTTP middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(SecurityHeaders)
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes() {
	// Long-lived streams get no request timeout.
	s.router.Get("/ws", s.ws.ServeHTTP)
	s.router.Get("/sse", s.sse.ServeHTTP)
	s.router.Options("/sse", s.sse.ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultHTTPTimeout))

		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(MaxBodySize(s.opts.MaxBodyBytes))
			r.Use(RequireJSONContentType)

			r.Post("/message", s.sse.ServeHTTP)
			r.Options("/message", s.sse.ServeHTTP)
			r.Post("/mcp", s.streamable.ServeHTTP)
			r.Options("/mcp", s.streamable.ServeHTTP)
		})
	})
}

// handleHealth returns liveness and identity.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"agent":   s.opts.AgentName,
		"version": s.opts.Version,
	})
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve multiplexes ln and blocks until ctx is cancelled or a transport
// fails. It always shuts every transport down before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	m := cmux.New(ln)
	// Without a deadline a silent client parks its matcher goroutine and
	// m.Serve never returns.
	m.SetReadTimeout(s.opts.MatchTimeout)
	// HTTP/1 and gRPC matchers read only as far as their prefixes, so raw
	// JSON lines fall through to Any without stalling.
	httpL := m.Match(cmux.HTTP1Fast())
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	tcpL := m.Match(cmux.Any())

	log.Info().Str("addr", ln.Addr().String()).Msg("Starting keyscout server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreClosed(s.grpcServer.Serve(grpcL)) })
	g.Go(func() error { return ignoreClosed(s.httpServer.Serve(httpL)) })
	g.Go(func() error { return s.serveTCP(gctx, tcpL) })
	g.Go(func() error { return ignoreClosed(m.Serve()) })
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		_ = ln.Close()
		return nil
	})

	err := g.Wait()
	s.tcpWG.Wait()
	log.Info().Msg("keyscout server stopped")
	return err
}

// serveTCP runs the line-delimited JSON-RPC protocol on each raw connection.
func (s *Server) serveTCP(ctx context.Context, l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return ignoreClosed(err)
		}

		s.tcpMu.Lock()
		if s.closing {
			s.tcpMu.Unlock()
			_ = conn.Close()
			continue
		}
		s.tcpConns[conn] = struct{}{}
		s.tcpWG.Add(1)
		s.tcpMu.Unlock()

		go func() {
			defer s.tcpWG.Done()
			defer func() {
				s.tcpMu.Lock()
				delete(s.tcpConns, conn)
				s.tcpMu.Unlock()
				_ = conn.Close()
			}()

			remote := conn.RemoteAddr().String()
			log.Debug().Str("remote", remote).Msg("TCP client connected")
			err := s.rpc.ServeStream(ctx, conn, conn)
			switch {
			case ignoreClosed(err) == nil:
			case errors.Is(err, os.ErrDeadlineExceeded):
				log.Debug().Str("remote", remote).Msg("TCP client sent nothing before the match timeout")
			default:
				log.Warn().Err(err).Str("remote", remote).Msg("TCP stream ended with error")
			}
		}()
	}
}

func (s *Server) shutdown() {
	log.Info().Msg("Shutting down keyscout server")
	s.health.Shutdown()

	// Streams never finish on their own, so end them before draining HTTP.
	s.sse.Close()
	s.ws.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.grpcServer.Stop()
	}

	s.tcpMu.Lock()
	s.closing = true
	for conn := range s.tcpConns {
		_ = conn.Close()
	}
	s.tcpMu.Unlock()
}

func ignoreClosed(err error) error {
	switch {
	case err == nil,
		errors.Is(err, net.ErrClosed),
		errors.Is(err, http.ErrServerClosed),
		errors.Is(err, grpc.ErrServerStopped),
		errors.Is(err, cmux.ErrListenerClosed),
		errors.Is(err, cmux.ErrServerClosed):
		return nil
	}
	return err
}
