package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// RecordView is the JSON projection of a stored record version.
type RecordView struct {
	SequenceID     int64  `json:"sequence_id"`
	ReportID       string `json:"report_id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Classification string `json:"classification"`
	UpdatedAt      string `json:"updated_at"`
	UpdatedBy      string `json:"updated_by"`
	ReceivedAt     string `json:"received_at"`
	Digest         string `json:"digest"`
}

// NewRecordView converts a record to its wire form.
func NewRecordView(rec ir.Record) RecordView {
	return RecordView{
		SequenceID:     rec.Seq,
		ReportID:       rec.ReportID,
		Title:          rec.Title,
		Content:        rec.Content,
		Classification: rec.Classification,
		UpdatedAt:      ir.FormatTimestamp(rec.UpdatedAt),
		UpdatedBy:      rec.UpdatedBy,
		ReceivedAt:     ir.FormatTimestamp(rec.ReceivedAt),
		Digest:         rec.Digest,
	}
}

func recordViews(records []ir.Record) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, NewRecordView(rec))
	}
	return views
}

// SyncResponse is the body of a successful POST /api/sync.
type SyncResponse struct {
	Status     string `json:"status"`
	SequenceID int64  `json:"sequence_id"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	code := ir.CodeOf(err)
	switch {
	case code == ir.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case code == ir.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case code.IsValidation():
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "internal error", Code: "INTERNAL"}
	var e *ir.Error
	if errors.As(err, &e) {
		resp = ErrorResponse{Error: e.Message, Code: string(e.Code), Field: e.Field}
	}
	writeJSON(w, statusFor(err), resp)
}
