package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// Scenario defines a reconciliation test scenario.
// Scenarios replay a sequence of edge submissions against a fresh Version
// Store and assert on the resulting trace and projection.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock controls the received_at stamps. Optional.
	Clock *ClockSpec `yaml:"clock,omitempty"`

	// Setup contains submissions applied before the main flow.
	// Setup submissions must be accepted.
	Setup []SubmitStep `yaml:"setup,omitempty"`

	// Flow contains the main test flow with optional expected outcomes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and projection.
	// Supported types: trace_contains, trace_count, latest, version_count,
	// history_order, replay_identical
	Assertions []Assertion `yaml:"assertions"`
}

// ClockSpec configures the deterministic received_at clock.
type ClockSpec struct {
	// Epoch is the first received_at stamp, RFC 3339.
	Epoch string `yaml:"epoch,omitempty"`

	// Step is the increment between stamps, e.g. "1s".
	Step string `yaml:"step,omitempty"`
}

// SubmitStep is one submission made under an authenticated identity.
type SubmitStep struct {
	// Identity is the verified user the submission is attributed to.
	Identity string `yaml:"identity"`

	// Submit is the wire payload.
	Submit Payload `yaml:"submit"`
}

// Payload mirrors the sync request body.
type Payload struct {
	ReportID       string `yaml:"report_id"`
	Title          string `yaml:"title"`
	Content        string `yaml:"content"`
	Classification string `yaml:"classification,omitempty"`
	UpdatedAt      string `yaml:"updated_at"`
	UpdatedBy      string `yaml:"updated_by,omitempty"`
}

// Submission converts the payload to its wire form.
func (p Payload) Submission() ir.Submission {
	return ir.Submission{
		ReportID:       p.ReportID,
		Title:          p.Title,
		Content:        p.Content,
		Classification: p.Classification,
		UpdatedAt:      p.UpdatedAt,
		UpdatedBy:      p.UpdatedBy,
	}
}

// FlowStep represents a step in the main test flow.
type FlowStep struct {
	SubmitStep `yaml:",inline"`

	// Expect specifies the expected outcome.
	// If nil, the submission must be accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a submission.
type ExpectClause struct {
	// Case is "accepted" or "rejected".
	Case string `yaml:"case"`

	// Code is the expected error code for a rejection.
	Code string `yaml:"code,omitempty"`

	// Field is the expected offending field for a rejection.
	Field string `yaml:"field,omitempty"`

	// SequenceID is the expected assigned sequence id for an acceptance.
	SequenceID int64 `yaml:"sequence_id,omitempty"`
}

// Assertion validates the trace or the final projection.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some trace event matches the selectors
	// - "trace_count": exactly Count trace events match the selectors
	// - "latest": the projected record for ReportID has the Expect fields
	// - "version_count": ReportID has exactly Count stored versions
	// - "history_order": ReportID's versions have exactly SequenceIDs, in order
	// - "replay_identical": projecting the history in reverse gives the same digest
	Type string `yaml:"type"`

	// Case selects trace events by type (trace_contains, trace_count).
	Case string `yaml:"case,omitempty"`

	// Identity selects trace events by identity (trace_contains, trace_count).
	Identity string `yaml:"identity,omitempty"`

	// ReportID selects trace events, or names the report for projection
	// assertions.
	ReportID string `yaml:"report_id,omitempty"`

	// Code selects trace events by error code (trace_contains, trace_count).
	Code string `yaml:"code,omitempty"`

	// Expect contains expected projected field values (latest).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (trace_count, version_count).
	Count int `yaml:"count,omitempty"`

	// SequenceIDs is the expected history order (history_order).
	SequenceIDs []int64 `yaml:"sequence_ids,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceCount      = "trace_count"
	AssertLatest          = "latest"
	AssertVersionCount    = "version_count"
	AssertHistoryOrder    = "history_order"
	AssertReplayIdentical = "replay_identical"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Clock != nil {
		if _, _, err := s.Clock.parse(); err != nil {
			return fmt.Errorf("clock: %w", err)
		}
	}

	for i, step := range s.Setup {
		if step.Identity == "" {
			return fmt.Errorf("setup[%d]: identity is required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Expect == nil {
			continue
		}
		switch step.Expect.Case {
		case EventAccepted:
			if step.Expect.Code != "" || step.Expect.Field != "" {
				return fmt.Errorf("flow[%d].expect: code and field apply only to rejected", i)
			}
		case EventRejected:
			if step.Expect.SequenceID != 0 {
				return fmt.Errorf("flow[%d].expect: sequence_id applies only to accepted", i)
			}
		case "":
			return fmt.Errorf("flow[%d].expect: case is required", i)
		default:
			return fmt.Errorf("flow[%d].expect: unknown case %q", i, step.Expect.Case)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Case == "" && a.Identity == "" && a.ReportID == "" && a.Code == "" {
			return fmt.Errorf("assertions[%d]: at least one selector is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertLatest:
		if a.ReportID == "" {
			return fmt.Errorf("assertions[%d]: report_id is required for latest", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for latest", index)
		}
	case AssertVersionCount:
		if a.ReportID == "" {
			return fmt.Errorf("assertions[%d]: report_id is required for version_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for version_count", index)
		}
	case AssertHistoryOrder:
		if a.ReportID == "" {
			return fmt.Errorf("assertions[%d]: report_id is required for history_order", index)
		}
	case AssertReplayIdentical:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

const defaultClockStep = time.Second

func (c *ClockSpec) parse() (time.Time, time.Duration, error) {
	var epoch time.Time
	if c.Epoch != "" {
		t, err := time.Parse(time.RFC3339Nano, c.Epoch)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("epoch: %w", err)
		}
		epoch = t
	}
	step := defaultClockStep
	if c.Step != "" {
		d, err := time.ParseDuration(c.Step)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("step: %w", err)
		}
		if d < 0 {
			return time.Time{}, 0, fmt.Errorf("step must be non-negative")
		}
		step = d
	}
	return epoch, step, nil
}
