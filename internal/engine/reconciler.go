package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

// DefaultAppendTimeout bounds a single durable append.
const DefaultAppendTimeout = 5 * time.Second

// Store is the subset of the Version Store the reconciler needs.
// Implemented by *store.Store.
type Store interface {
	Append(ctx context.Context, rec ir.Record) (int64, error)
	Scan(ctx context.Context) ([]ir.Record, error)
	ReadHistory(ctx context.Context, reportID string) ([]ir.Record, error)
	Query(ctx context.Context, f store.Filter) ([]ir.Record, error)
}

// Reconciler validates submissions, appends them to the Version Store, and
// computes read-time projections.
//
// Thread-safety: Accept and the read methods are safe for concurrent use.
// Ordering of concurrent appends is decided by the store. Appends are
// serialized with their feed publish, so the feed sees records in
// sequence order.
type Reconciler struct {
	store         Store
	logger        *slog.Logger
	now           func() time.Time
	appendTimeout time.Duration
	feed          *Feed

	// appendSlot holds one token while an append and its publish run.
	appendSlot chan struct{}
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithAppendTimeout bounds each Append call. Zero disables the bound.
//
// Default: 5s (DefaultAppendTimeout)
func WithAppendTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.appendTimeout = d
	}
}

// WithClock sets the source of received_at timestamps.
// Tests use a deterministic clock so stored records are reproducible.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithFeed publishes every accepted record to f.
func WithFeed(f *Feed) Option {
	return func(r *Reconciler) {
		r.feed = f
	}
}

// New creates a Reconciler over s. A nil logger discards log output.
func New(s Store, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Reconciler{
		store:         s,
		logger:        logger,
		now:           time.Now,
		appendTimeout: DefaultAppendTimeout,
		appendSlot:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Accept validates sub, stamps it with identity, and durably appends it.
//
// On success the returned Record carries its assigned sequence id and is
// visible to every subsequent read. On failure nothing is recorded and the
// error is an *ir.Error: a validation code, AUTH_FAILED for an empty
// identity, or STORE_UNAVAILABLE when the append did not complete.
func (r *Reconciler) Accept(ctx context.Context, sub ir.Submission, identity string) (ir.Record, error) {
	rec, err := ir.Validate(sub, identity)
	if err != nil {
		r.logReject(ctx, sub, identity, err)
		return ir.Record{}, err
	}
	rec.ReceivedAt = r.now().UTC()

	appendCtx := ctx
	if r.appendTimeout > 0 {
		var cancel context.CancelFunc
		appendCtx, cancel = context.WithTimeout(ctx, r.appendTimeout)
		defer cancel()
	}

	seq, err := r.appendAndPublish(appendCtx, rec)
	if err != nil {
		serr := ir.NewStoreUnavailableError(err)
		r.logReject(ctx, sub, identity, serr)
		return ir.Record{}, serr
	}
	rec.Seq = seq

	r.logger.InfoContext(ctx, "accepted record",
		"sequence_id", rec.Seq,
		"report_id", rec.ReportID,
		"updated_by", rec.UpdatedBy,
		"updated_at", ir.FormatTimestamp(rec.UpdatedAt),
	)
	return rec, nil
}

// appendAndPublish appends rec and publishes it to the feed while holding
// the append slot. Waiting for the slot counts against ctx.
func (r *Reconciler) appendAndPublish(ctx context.Context, rec ir.Record) (int64, error) {
	select {
	case r.appendSlot <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-r.appendSlot }()

	seq, err := r.store.Append(ctx, rec)
	if err != nil {
		return 0, err
	}
	if r.feed != nil {
		rec.Seq = seq
		r.feed.Publish(rec)
	}
	return seq, nil
}

func (r *Reconciler) logReject(ctx context.Context, sub ir.Submission, identity string, err error) {
	level := slog.LevelWarn
	if ir.IsStoreUnavailable(err) {
		level = slog.LevelError
	}
	var field string
	var e *ir.Error
	if errors.As(err, &e) {
		field = e.Field
	}
	r.logger.Log(ctx, level, "rejected record",
		"code", ir.CodeOf(err),
		"field", field,
		"report_id", sub.ReportID,
		"identity", identity,
		"error", err,
	)
}

// AllVersions returns every accepted version in sequence order.
func (r *Reconciler) AllVersions(ctx context.Context) ([]ir.Record, error) {
	records, err := r.store.Scan(ctx)
	if err != nil {
		return nil, ir.NewStoreUnavailableError(fmt.Errorf("scan: %w", err))
	}
	return records, nil
}

// History returns every version of one report in sequence order.
// An unknown report_id yields an empty slice.
func (r *Reconciler) History(ctx context.Context, reportID string) ([]ir.Record, error) {
	records, err := r.store.ReadHistory(ctx, reportID)
	if err != nil {
		return nil, ir.NewStoreUnavailableError(fmt.Errorf("read history: %w", err))
	}
	return records, nil
}

// Query returns the versions matching f in sequence order.
func (r *Reconciler) Query(ctx context.Context, f store.Filter) ([]ir.Record, error) {
	records, err := r.store.Query(ctx, f)
	if err != nil {
		return nil, ir.NewStoreUnavailableError(fmt.Errorf("query: %w", err))
	}
	return records, nil
}

// LatestByReportID returns the winning version of every report_id.
func (r *Reconciler) LatestByReportID(ctx context.Context) (map[string]ir.Record, error) {
	records, err := r.AllVersions(ctx)
	if err != nil {
		return nil, err
	}
	return Project(records), nil
}

// Latest returns LatestByReportID as a slice ordered by report_id.
func (r *Reconciler) Latest(ctx context.Context) ([]ir.Record, error) {
	latest, err := r.LatestByReportID(ctx)
	if err != nil {
		return nil, err
	}
	return SortedLatest(latest), nil
}
