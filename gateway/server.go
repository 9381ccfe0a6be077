package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/actiongate/entitlement"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/metric"
	"github.com/c360/actiongate/store"
	"github.com/c360/actiongate/webaction"
)

// Route prefixes for the two web action surfaces. Everything after the
// prefix is the namespace/package/action path the pipeline decodes.
const (
	MainPrefix         = "/api/v1/web/"
	ExperimentalPrefix = "/experimental/web/"
)

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Options carries the dependencies and tunables for a gateway server.
type Options struct {
	Auth        store.AuthStore
	Entities    store.EntityStore
	Throttle    entitlement.Provider
	Invoker     webaction.Invoker
	Metrics     *metric.Metrics
	Logger      Logger
	Port        int
	MaxBodySize int64
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

// Server terminates web action HTTP traffic. It mounts the main and
// experimental pipelines under their route prefixes and tracks basic
// request statistics.
type Server struct {
	opts   Options
	mux    *http.ServeMux
	server *http.Server

	requestCount  atomic.Int64
	responseCount atomic.Int64

	mu      sync.Mutex
	started bool
}

// NewServer wires both pipeline variants and returns a server ready to
// Start. Dependencies must be non-nil except Metrics and Logger.
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Entities == nil || opts.Throttle == nil || opts.Invoker == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("missing dependency"),
			"Server", "NewServer", "auth, entities, throttle and invoker are required")
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 1 << 20
	}
	if opts.Port == 0 {
		opts.Port = 8080
	}

	s := &Server{opts: opts, mux: http.NewServeMux()}

	s.mount(MainPrefix, "main", webaction.MainVariant())
	s.mount(ExperimentalPrefix, "experimental", webaction.ExperimentalVariant())

	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return s, nil
}

func (s *Server) mount(prefix, surface string, variant webaction.Variant) {
	pipeline := &webaction.Pipeline{
		Variant:     variant,
		Auth:        s.opts.Auth,
		Entities:    s.opts.Entities,
		Throttle:    s.opts.Throttle,
		Invoker:     s.opts.Invoker,
		MaxBodySize: s.opts.MaxBodySize,
	}
	if s.opts.Logger != nil {
		pipeline.Logger = s.opts.Logger
	}
	if s.opts.Metrics != nil {
		pipeline.Metrics = s.opts.Metrics
	}

	handler := http.StripPrefix(strings.TrimSuffix(prefix, "/"), pipeline)
	s.mux.Handle(prefix, s.instrument(surface, handler))
}

// instrument wraps a surface handler with counters and the in-flight
// gauge.
func (s *Server) instrument(surface string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)
		if m := s.opts.Metrics; m != nil {
			m.CountRequest(surface, r.Method)
			m.InFlight.Inc()
			defer m.InFlight.Dec()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.responseCount.Add(1)
		if m := s.opts.Metrics; m != nil {
			m.CountResponse(surface, rec.status)
		}
		if l := s.opts.Logger; l != nil {
			l.Debugf("request surface=%s method=%s path=%s status=%d duration=%s txn=%s",
				surface, r.Method, r.URL.Path, rec.status,
				time.Since(start).Round(time.Millisecond),
				rec.Header().Get(webaction.TransactionIDHeader))
		}
	})
}

// Handler returns the routing mux. Exposed so tests can drive the
// server through httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the listener. Blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.opts.Port),
		Handler:     s.mux,
		ReadTimeout: s.opts.ReadTimeout,
		IdleTimeout: s.opts.IdleTimeout,
	}
	s.started = true
	srv := s.server
	s.mu.Unlock()

	if s.opts.Logger != nil {
		s.opts.Logger.Printf("web action surfaces listening on :%d", s.opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to start server on port %d", s.opts.Port))
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.started = false
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Shutdown", "drain HTTP server")
	}
	return nil
}

// Stats reports request and response totals since start.
func (s *Server) Stats() (requests, responses int64) {
	return s.requestCount.Load(), s.responseCount.Load()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
