package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// ErrAlreadySequenced is returned when Append is given a record that already
// carries a sequence id. Sequence ids are assigned only by the store.
var ErrAlreadySequenced = errors.New("record already has a sequence id")

// Append durably records one validated record version and returns its
// sequence id.
//
// The insert runs in its own transaction: on any error nothing is recorded
// and the returned id is 0. On success the row is fully visible to every
// subsequent read. If rec.ReceivedAt is zero the current time is used.
func (s *Store) Append(ctx context.Context, rec ir.Record) (int64, error) {
	if rec.Seq != 0 {
		return 0, fmt.Errorf("append: %w", ErrAlreadySequenced)
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reports
		(report_id, title, content, classification, updated_at, updated_by, received_at, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ReportID,
		rec.Title,
		rec.Content,
		rec.Classification,
		formatTime(rec.UpdatedAt),
		rec.UpdatedBy,
		formatTime(rec.ReceivedAt),
		rec.Digest,
	)
	if err != nil {
		return 0, fmt.Errorf("append: insert: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append: commit: %w", err)
	}

	return seq, nil
}
