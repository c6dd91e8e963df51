// Package server exposes deck generation and the people/plan store over
// HTTP. Handlers are registered on a plain ServeMux:
//
//	POST /api/decks                                  plan JSON → .pptx download
//	GET  /api/employees?last_name=                   directory search
//	GET  /api/employees/{id}/incumbent-plan          latest incumbent plan
//	GET  /api/employees/{id}/successor-assessment    latest assessment
//	POST /api/plans                                  save a plan, returns record ids
//	GET  /api/form-options                           dropdown choices
//	GET  /healthz
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"succession/internal/config"
	"succession/internal/deck"
	"succession/internal/logging"
	"succession/internal/plan"

	"golang.org/x/net/netutil"
)

// maxRequestBodySize limits POST bodies.
const maxRequestBodySize = 1 << 20

const shutdownTimeout = 5 * time.Second

// DeckBuilder builds one deck from a plan.
type DeckBuilder interface {
	Build(ctx context.Context, in plan.Input) (*deck.Result, error)
}

// Directory is the person and plan store behind the lookup endpoints.
type Directory interface {
	SearchEmployees(lastName string, limit int) ([]plan.Person, error)
	LatestIncumbentPlan(employeeID string) (*plan.IncumbentPlan, error)
	LatestSuccessorAssessment(employeeID string) (*plan.SuccessorAssessment, error)
	SavePlan(in plan.Input) ([]string, error)
}

// Options configures a Server.
type Options struct {
	Addr         string
	MaxConns     int // 0 = unlimited
	BuildTimeout time.Duration
	SearchLimit  int
	FormOptions  config.FormOptions
}

// OptionsFromConfig maps the server, database and form sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:         cfg.Server.Addr,
		MaxConns:     cfg.Server.MaxConns,
		BuildTimeout: cfg.GetBuildTimeout(),
		SearchLimit:  cfg.Database.SearchLimit,
		FormOptions:  cfg.FormOptions,
	}
}

// Server serves the HTTP surface.
type Server struct {
	opts    Options
	builder DeckBuilder
	dir     Directory
	mux     *http.ServeMux
}

// New creates a server. dir may be nil, in which case the store endpoints
// answer 503.
func New(opts Options, builder DeckBuilder, dir Directory) *Server {
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = 2 * time.Minute
	}
	s := &Server{opts: opts, builder: builder, dir: dir, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/decks", s.handleBuildDeck)
	s.mux.HandleFunc("GET /api/employees", s.handleSearchEmployees)
	s.mux.HandleFunc("GET /api/employees/{id}/incumbent-plan", s.handleIncumbentPlan)
	s.mux.HandleFunc("GET /api/employees/{id}/successor-assessment", s.handleSuccessorAssessment)
	s.mux.HandleFunc("POST /api/plans", s.handleSavePlan)
	s.mux.HandleFunc("GET /api/form-options", s.handleFormOptions)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return withLogging(s.mux)
}

// ListenAndServe listens on Options.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. At most Options.MaxConns connections are open at once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.HTTP("listening on %s (max %d connections)", ln.Addr(), s.opts.MaxConns)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
		logging.HTTP("server stopped")
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logging.Get(logging.CategoryHTTP).Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
