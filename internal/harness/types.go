package harness

// Trace event types.
const (
	EventAccepted = "accepted"
	EventRejected = "rejected"
)

// TraceEvent records the outcome of one submission in scenario order.
type TraceEvent struct {
	Type      string `json:"type"` // "accepted" or "rejected"
	Step      int    `json:"step"`
	Identity  string `json:"identity"`
	ReportID  string `json:"report_id"`
	Seq       int64  `json:"sequence_id,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Code      string `json:"code,omitempty"`
	Field     string `json:"field,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per setup and flow submission, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Latest is the projection after the last step, keyed by report_id.
	Latest map[string]LatestView `json:"latest,omitempty"`
}

// LatestView is the part of a projected record that scenarios assert on.
type LatestView struct {
	Seq            int64  `json:"sequence_id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Classification string `json:"classification"`
	UpdatedAt      string `json:"updated_at"`
	UpdatedBy      string `json:"updated_by"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Latest: make(map[string]LatestView),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddAcceptedTrace adds an accepted submission to the trace.
func (r *Result) AddAcceptedTrace(step int, identity, reportID string, seq int64, updatedAt string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventAccepted,
		Step:      step,
		Identity:  identity,
		ReportID:  reportID,
		Seq:       seq,
		UpdatedAt: updatedAt,
	})
}

// AddRejectedTrace adds a rejected submission to the trace.
func (r *Result) AddRejectedTrace(step int, identity, reportID, code, field string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventRejected,
		Step:     step,
		Identity: identity,
		ReportID: reportID,
		Code:     code,
		Field:    field,
	})
}
