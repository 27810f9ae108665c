package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

const selectColumns = `id, report_id, title, content, classification, updated_at, updated_by, received_at, digest`

// Scan returns every record version in sequence order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) Scan(ctx context.Context) ([]ir.Record, error) {
	return s.queryRecords(ctx, `SELECT `+selectColumns+` FROM reports ORDER BY id ASC`)
}

// ReadRecord returns the record version with the given sequence id.
// Returns sql.ErrNoRows if no such version exists.
func (s *Store) ReadRecord(ctx context.Context, seq int64) (ir.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM reports WHERE id = ?`, seq)
	rec, err := scanRecord(row)
	if err != nil {
		return ir.Record{}, fmt.Errorf("read record %d: %w", seq, err)
	}
	return rec, nil
}

// ReadHistory returns every version of one report in sequence order.
func (s *Store) ReadHistory(ctx context.Context, reportID string) ([]ir.Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+selectColumns+`
		FROM reports
		WHERE report_id = ?
		ORDER BY id ASC
	`, reportID)
}

// ListReportIDs returns the distinct report ids in the store, sorted
// bytewise.
func (s *Store) ListReportIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT report_id FROM reports ORDER BY report_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query report ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan report id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report ids: %w", err)
	}
	return ids, nil
}

// LastSeq returns the highest assigned sequence id, or 0 for an empty store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM reports`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// Count returns the number of stored record versions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// Filter narrows a Query. Zero-valued fields are ignored.
type Filter struct {
	ReportID       string
	Classification string
	UpdatedBy      string
	AfterSeq       int64 // Only versions with sequence id > AfterSeq
	Limit          int   // 0 means no limit
}

// Query returns the versions matching f in sequence order.
// All values are bound as parameters.
func (s *Store) Query(ctx context.Context, f Filter) ([]ir.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.ReportID != "" {
		where = append(where, "report_id = ?")
		args = append(args, f.ReportID)
	}
	if f.Classification != "" {
		where = append(where, "classification = ?")
		args = append(args, f.Classification)
	}
	if f.UpdatedBy != "" {
		where = append(where, "updated_by = ?")
		args = append(args, f.UpdatedBy)
	}
	if f.AfterSeq > 0 {
		where = append(where, "id > ?")
		args = append(args, f.AfterSeq)
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM reports")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	return s.queryRecords(ctx, b.String(), args...)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return records, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ir.Record, error) {
	var (
		rec                   ir.Record
		updatedAt, receivedAt string
	)
	err := row.Scan(
		&rec.Seq,
		&rec.ReportID,
		&rec.Title,
		&rec.Content,
		&rec.Classification,
		&updatedAt,
		&rec.UpdatedBy,
		&receivedAt,
		&rec.Digest,
	)
	if err != nil {
		return ir.Record{}, fmt.Errorf("scan report: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ir.Record{}, err
	}
	if rec.ReceivedAt, err = parseTime(receivedAt); err != nil {
		return ir.Record{}, err
	}
	return rec, nil
}
