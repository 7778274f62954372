package executor

import "errors"

var (
	// ErrNavigationFailed is returned when the form page cannot be loaded
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrSubmitClickFailed is returned when the submit control cannot be clicked
	ErrSubmitClickFailed = errors.New("submit click failed")
)

// State is a step of a fill run
type State int

const (
	StateNavigating State = iota
	StateFillingFields
	StateLocatingSubmit
	StateSubmitting
	StateAwaitingSettle
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateNavigating:     "navigating",
	StateFillingFields:  "filling-fields",
	StateLocatingSubmit: "locating-submit",
	StateSubmitting:     "submitting",
	StateAwaitingSettle: "awaiting-settle",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SkipReason says why a field was not filled
type SkipReason string

const (
	SkipUnfillable SkipReason = "unfillable"
	SkipNoValue    SkipReason = "no-value"
	SkipNotFound   SkipReason = "not-found"
	SkipFailed     SkipReason = "failed"
	// SkipUnchanged marks a checkbox or radio already in the requested state
	SkipUnchanged SkipReason = "unchanged"
)

// SkippedField is a field the run left alone
type SkippedField struct {
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
	Error  string     `json:"error,omitempty"`
}

// Result reports how a fill went. Field problems and a missing submit
// control are soft outcomes recorded here, never errors.
type Result struct {
	Success        bool           `json:"success"`
	Submitted      bool           `json:"submitted"`
	SubmitNotFound bool           `json:"submitNotFound,omitempty"`
	Filled         []string       `json:"filled"`
	Skipped        []SkippedField `json:"skipped,omitempty"`
	State          State          `json:"state"`
}

func (r *Result) skip(name string, reason SkipReason, err error) {
	s := SkippedField{Name: name, Reason: reason}
	if err != nil {
		s.Error = err.Error()
	}
	r.Skipped = append(r.Skipped, s)
}
