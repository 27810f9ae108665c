package edge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS local_reports (
    id             TEXT PRIMARY KEY,
    report_id      TEXT NOT NULL,
    title          TEXT NOT NULL,
    content        TEXT NOT NULL,
    classification TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    created_at     TEXT NOT NULL,
    synced_seq     INTEGER,
    synced_at      TEXT,
    attempts       INTEGER NOT NULL DEFAULT 0,
    last_error     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_local_reports_unsynced
    ON local_reports(synced_seq, id);
`

// LocalRecord is one record authored on this edge.
type LocalRecord struct {
	ID             string     `json:"id"` // UUIDv7, sortable by creation
	ReportID       string     `json:"report_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Classification string     `json:"classification"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CreatedAt      time.Time  `json:"created_at"`
	SyncedSeq      int64      `json:"synced_seq,omitempty"` // cloud sequence id; 0 while unsynced
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	Attempts       int        `json:"attempts"`
	LastError      string     `json:"last_error,omitempty"`
}

// Synced reports whether the cloud has acknowledged the record.
func (r LocalRecord) Synced() bool {
	return r.SyncedSeq > 0
}

// Submission converts the record to its wire payload.
func (r LocalRecord) Submission() ir.Submission {
	return ir.Submission{
		ReportID:       r.ReportID,
		Title:          r.Title,
		Content:        r.Content,
		Classification: r.Classification,
		UpdatedAt:      ir.FormatTimestamp(r.UpdatedAt),
	}
}

// Log is the edge's local append-only record log.
type Log struct {
	db   *sql.DB
	user string
	now  func() time.Time
}

// OpenLog opens or creates the edge log at path. user is the edge identity
// used to validate records before they are written.
func OpenLog(path, user string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to edge log: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply edge schema: %w", err)
	}

	return &Log{db: db, user: user, now: time.Now}, nil
}

// Close closes the edge log.
func (l *Log) Close() error {
	return l.db.Close()
}

// SetClock overrides the time source for created_at and synced_at, and for
// updated_at when AppendLocal is given none.
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// AppendLocal validates sub with the edge identity and records it as
// unsynced. A blank UpdatedAt is stamped with the current time.
func (l *Log) AppendLocal(ctx context.Context, sub ir.Submission) (LocalRecord, error) {
	now := l.now().UTC()
	if sub.UpdatedAt == "" {
		sub.UpdatedAt = ir.FormatTimestamp(now)
	}

	rec, err := ir.Validate(sub, l.user)
	if err != nil {
		return LocalRecord{}, err
	}

	local := LocalRecord{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ReportID:       rec.ReportID,
		Title:          rec.Title,
		Content:        rec.Content,
		Classification: rec.Classification,
		UpdatedAt:      rec.UpdatedAt,
		CreatedAt:      now,
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO local_reports
		(id, report_id, title, content, classification, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		local.ID,
		local.ReportID,
		local.Title,
		local.Content,
		local.Classification,
		ir.FormatTimestamp(local.UpdatedAt),
		ir.FormatTimestamp(local.CreatedAt),
	)
	if err != nil {
		return LocalRecord{}, fmt.Errorf("append local: %w", err)
	}
	return local, nil
}

// ListUnsynced returns records not yet acknowledged by the cloud, oldest
// first.
func (l *Log) ListUnsynced(ctx context.Context) ([]LocalRecord, error) {
	return l.query(ctx, `WHERE synced_seq IS NULL`)
}

// List returns every local record, oldest first.
func (l *Log) List(ctx context.Context) ([]LocalRecord, error) {
	return l.query(ctx, ``)
}

// MarkSynced records the cloud sequence id for a local record.
// Marking an already-synced record is an error so that a duplicate ack is
// noticed.
func (l *Log) MarkSynced(ctx context.Context, id string, seq int64) error {
	if seq <= 0 {
		return fmt.Errorf("mark synced %s: invalid sequence id %d", id, seq)
	}
	res, err := l.db.ExecContext(ctx, `
		UPDATE local_reports
		SET synced_seq = ?, synced_at = ?, attempts = attempts + 1, last_error = ''
		WHERE id = ? AND synced_seq IS NULL
	`, seq, ir.FormatTimestamp(l.now()), id)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark synced %s: no unsynced record with that id", id)
	}
	return nil
}

// MarkFailed records a failed submission attempt. The record stays unsynced.
func (l *Log) MarkFailed(ctx context.Context, id string, cause error) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE local_reports
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ? AND synced_seq IS NULL
	`, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", id, err)
	}
	return nil
}

func (l *Log) query(ctx context.Context, where string) ([]LocalRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, report_id, title, content, classification, updated_at, created_at,
		       synced_seq, synced_at, attempts, last_error
		FROM local_reports `+where+`
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query local reports: %w", err)
	}
	defer rows.Close()

	records := []LocalRecord{}
	for rows.Next() {
		var (
			r                    LocalRecord
			updatedAt, createdAt string
			syncedSeq            sql.NullInt64
			syncedAt             sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ReportID, &r.Title, &r.Content, &r.Classification,
			&updatedAt, &createdAt, &syncedSeq, &syncedAt, &r.Attempts, &r.LastError); err != nil {
			return nil, fmt.Errorf("scan local report: %w", err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		r.SyncedSeq = syncedSeq.Int64
		if syncedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, syncedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse synced_at: %w", err)
			}
			r.SyncedAt = &t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local reports: %w", err)
	}
	return records, nil
}
