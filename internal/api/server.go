package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

// DefaultMaxBodyBytes bounds a POST /api/sync body.
const DefaultMaxBodyBytes = 64 << 10

const shutdownTimeout = 5 * time.Second

// Verifier turns a bearer token into a verified identity.
// Implemented by *auth.Verifier.
type Verifier interface {
	Verify(token string) (string, error)
}

// Pinger reports store reachability for the health probe.
// Implemented by *store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the Sync Transport routes.
type Server struct {
	reconciler   *engine.Reconciler
	verifier     Verifier
	logger       *slog.Logger
	pinger       Pinger
	feed         *engine.Feed
	ids          IDGenerator
	now          func() time.Time
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithPinger enables the store check in GET /api/health.
func WithPinger(p Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithFeed enables GET /api/reports/stream.
func WithFeed(f *engine.Feed) Option {
	return func(s *Server) {
		s.feed = f
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Server) {
		s.ids = g
	}
}

// WithClock overrides the time reported by the health probe.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithMaxBodyBytes bounds the size of a submission body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a Server. A nil logger discards log output.
func NewServer(rec *engine.Reconciler, verifier Verifier, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		reconciler:   rec,
		verifier:     verifier,
		logger:       logger,
		ids:          UUIDv7Generator{},
		now:          time.Now,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with request-id and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/sync", s.requireAuth(http.HandlerFunc(s.handleSync)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/reports", s.handleReports)
	mux.HandleFunc("GET /api/reports/latest", s.handleLatest)
	mux.HandleFunc("GET /api/reports/{report_id}/versions", s.handleVersions)
	if s.feed != nil {
		mux.HandleFunc("GET /api/reports/stream", s.handleStream)
	}
	return s.withRequestID(s.logRequests(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. The listen address actually bound is logged.
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
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sync transport listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("sync transport shutting down")
	if s.feed != nil {
		s.feed.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(body)

	var sub ir.Submission
	if err := dec.Decode(&sub); err != nil {
		writeError(w, ir.NewMalformedPayloadError(err))
		return
	}
	if dec.More() {
		writeError(w, ir.NewMalformedPayloadError(errors.New("trailing data after record")))
		return
	}

	rec, err := s.reconciler.Accept(r.Context(), sub, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Status: "ok", SequenceID: rec.Seq})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "running",
		Time:    ir.FormatTimestamp(s.now()),
		Version: ir.ServiceVersion,
		Store:   "ok",
	}
	status := http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			resp.Status = "degraded"
			resp.Store = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := s.reconciler.Query(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordViews(records))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	records, err := s.reconciler.Latest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordViews(records))
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	records, err := s.reconciler.History(r.Context(), r.PathValue("report_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordViews(records))
}

func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		ReportID:       q.Get("report_id"),
		Classification: q.Get("classification"),
		UpdatedBy:      q.Get("updated_by"),
	}
	if v := q.Get("after_seq"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return store.Filter{}, invalidParam("after_seq", err)
		}
		f.AfterSeq = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return store.Filter{}, invalidParam("limit", err)
		}
		f.Limit = n
	}
	return f, nil
}

func invalidParam(name string, cause error) error {
	return &ir.Error{
		Code:    ir.ErrCodeMalformedPayload,
		Message: "query parameter must be a non-negative integer",
		Field:   name,
		Err:     cause,
	}
}
