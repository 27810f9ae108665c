package ir

import "time"

// DefaultClassification is applied when a submission omits classification.
const DefaultClassification = "CUI"

// Field length bounds in bytes. They match the column sizes of the
// reports table the edges were originally built against.
const (
	MaxReportIDLen       = 64
	MaxTitleLen          = 255
	MaxContentLen        = 2000
	MaxClassificationLen = 20
	MaxUpdatedByLen      = 100
)

// Record is one accepted version of a report.
//
// Seq is assigned by the Version Store on acceptance and reflects arrival
// order, not authoring order. A Record with Seq == 0 has been validated but
// not yet appended.
type Record struct {
	Seq            int64     `json:"sequence_id"`
	ReportID       string    `json:"report_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
	UpdatedBy      string    `json:"updated_by"`
	ReceivedAt     time.Time `json:"received_at"` // Audit only, never used for ordering
	Digest         string    `json:"digest"`      // RecordDigest of the payload fields
}

// Submission is the wire payload an edge sends for one record version.
//
// Fields are plain strings so that absence and malformation can be reported
// precisely by Validate. UpdatedBy is accepted on the wire for compatibility
// with older edges but is always discarded.
type Submission struct {
	ReportID       string `json:"report_id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Classification string `json:"classification,omitempty"`
	UpdatedAt      string `json:"updated_at"`
	UpdatedBy      string `json:"updated_by,omitempty"`
}

// Newer reports whether a supersedes b under the projection policy:
// later UpdatedAt wins, and on an exact timestamp tie the higher Seq
// (later acceptance) wins.
//
// Newer is a strict total order over records with distinct Seq values.
func Newer(a, b Record) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.Seq > b.Seq
}
