// Package server exposes neighborhoods and live viewer sessions over HTTP.
//
// A viewer session owns one [viewer.Viewer] driven by a timer scheduler and
// drawn onto an in-memory surface, so browser clients can poll the GeoJSON
// sources, forward clicks and selections, and pause or resume the layout.
// Idle sessions are disposed after the configured TTL.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toucan4life/gamemap/pkg/config"
	"github.com/toucan4life/gamemap/pkg/layout"
	"github.com/toucan4life/gamemap/pkg/metrics"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
	"github.com/toucan4life/gamemap/pkg/store"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// Options wires the server's dependencies.
type Options struct {
	Builder *neighborhood.Builder
	Store   store.Store // defaults to a memory store

	// Metrics records request metrics; Gatherer serves /metrics. Either
	// may be nil.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Server config.ServerConfig
	Viewer config.ViewerConfig
	Layout layout.Config
	Style  viewer.Style
	Depth  int

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	opts     Options
	logger   *log.Logger
	sessions *sessions
	router   chi.Router
}

// New creates a server. Call Close to dispose of its viewer sessions.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Depth <= 0 {
		opts.Depth = config.Default().Fetch.Depth
	}
	if opts.Style.EdgeBands == nil {
		opts.Style = viewer.DefaultStyle()
	}
	if opts.Server.SessionTTL <= 0 {
		opts.Server.SessionTTL = config.Default().Server.SessionTTL
	}
	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		sessions: newSessions(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	origins := s.opts.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/clusters/{cluster}/nodes/{node}", func(r chi.Router) {
			r.Get("/neighbors", s.neighbors)
			r.Get("/neighborhood", s.neighborhood)
		})

		r.Post("/viewers", s.createViewer)
		r.Route("/viewers/{id}", func(r chi.Router) {
			r.Get("/", s.viewerStatus)
			r.Delete("/", s.deleteViewer)
			r.Get("/sources/{source}", s.viewerSource)
			r.Post("/click", s.viewerClick)
			r.Post("/select", s.viewerSelect)
			r.Post("/stop", s.viewerStop)
			r.Post("/resume", s.viewerResume)
			r.Get("/nodes/{node}", s.viewerNode)
			r.Get("/svg", s.viewerSVG)
			r.Post("/snapshots", s.saveSnapshot)
		})

		r.Get("/snapshots/{id}", s.getSnapshot)
	})

	return r
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully and disposes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close disposes every viewer session.
func (s *Server) Close() {
	for _, sess := range s.sessions.drain() {
		sess.dispose()
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	interval := s.opts.Server.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.sweep(now); n > 0 {
				s.logger.Debug("disposed idle viewers", "count", n)
			}
		}
	}
}

// sweep disposes sessions idle for longer than the session TTL.
func (s *Server) sweep(now time.Time) int {
	expired := s.sessions.expired(now.Add(-s.opts.Server.SessionTTL))
	for _, sess := range expired {
		sess.dispose()
	}
	return len(expired)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"viewers": s.sessions.len(),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveRequest(r.Method, route, status, time.Since(start))
		}
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
