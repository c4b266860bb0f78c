// Package api serves the logistics master-data collections over the
// paginated REST contract the picker consumes.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/runger/logistix/internal/backend"
	"github.com/runger/logistix/internal/domain"
	"github.com/runger/logistix/internal/storage"
)

// BasePath prefixes every collection route.
const BasePath = "/api/v1"

// searchParams are the query parameters accepted as the search term, in
// order of preference.
var searchParams = []string{backend.DefaultSearchParam, "q", "name"}

// routes maps URL collection names to record kinds.
var routes = map[string]domain.Kind{
	"customers":  domain.KindCustomer,
	"vendors":    domain.KindVendor,
	"locations":  domain.KindLocation,
	"pricelists": domain.KindPriceList,
}

// listBody mirrors backend.ListResponse with the item type erased.
type listBody struct {
	Items      any                `json:"items"`
	Pagination backend.Pagination `json:"pagination"`
}

// Server is the mock master-data API.
type Server struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *Metrics
	latency time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLatency delays every list response by d. Out-of-order responses in
// the picker are easiest to reproduce with a few hundred milliseconds.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.latency = d
		}
	}
}

// NewServer creates a Server over store.
func NewServer(store storage.Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		logger:  slog.Default(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the server's instrumentation.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the full HTTP handler: routes, /metrics, CORS and the
// middleware chain.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET(BasePath+"/:resource", s.metrics.Instrument("list", s.handleList))
	router.GET("/healthz", s.handleHealth)
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	rootMux := http.NewServeMux()
	rootMux.Handle("/", router)
	rootMux.Handle("/metrics", s.metrics.Handler())

	// The back-office SPA is served from another origin during development.
	handler := cors.AllowAll().Handler(rootMux)

	return Chain(handler,
		Recovery(s.logger),
		RequestID(),
		Logging(s.logger),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String(), "base_path", BasePath)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList serves GET /api/v1/:resource?page=N&limit=M&search=term.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resource := ps.ByName("resource")
	kind, ok := routes[resource]
	if !ok {
		WriteError(w, r, http.StatusNotFound, fmt.Sprintf("unknown resource %q", resource))
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	ctx := r.Context()
	var (
		items any
		n     int
		total int
	)
	switch kind {
	case domain.KindCustomer:
		rows, t, e := s.store.ListCustomers(ctx, q)
		items, n, total, err = nonNil(rows), len(rows), t, e
	case domain.KindVendor:
		rows, t, e := s.store.ListVendors(ctx, q)
		items, n, total, err = nonNil(rows), len(rows), t, e
	case domain.KindLocation:
		rows, t, e := s.store.ListLocations(ctx, q)
		items, n, total, err = nonNil(rows), len(rows), t, e
	case domain.KindPriceList:
		rows, t, e := s.store.ListPriceLists(ctx, q)
		items, n, total, err = nonNil(rows), len(rows), t, e
	}
	if err != nil {
		s.logger.Error("list failed", "resource", resource, "error", err, "request_id", RequestIDFrom(ctx))
		WriteError(w, r, http.StatusInternalServerError, "failed to list "+resource)
		return
	}

	s.metrics.ItemsServed(resource, n)
	WriteJSON(w, http.StatusOK, listBody{
		Items: items,
		Pagination: backend.Pagination{
			TotalPages:  storage.TotalPages(total, q.Limit),
			CurrentPage: q.Page,
			TotalItems:  total,
			Limit:       q.Limit,
		},
	})
}

// parseQuery reads page, limit and the search term. Missing values take
// defaults; malformed ones are rejected.
func parseQuery(r *http.Request) (storage.Query, error) {
	v := r.URL.Query()
	q := storage.Query{Page: 1, Limit: storage.DefaultLimit}

	if raw := v.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("page must be a positive integer, got %q", raw)
		}
		if n > storage.MaxPage {
			return q, fmt.Errorf("page must not exceed %d, got %q", storage.MaxPage, raw)
		}
		q.Page = n
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("limit must be a positive integer, got %q", raw)
		}
		q.Limit = n
	}
	for _, p := range searchParams {
		if term := strings.TrimSpace(v.Get(p)); term != "" {
			q.Search = term
			break
		}
	}
	return q.Normalize(), nil
}

// nonNil keeps empty pages encoding as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
