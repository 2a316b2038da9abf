package harness

import (
	"encoding/json"

	"github.com/roach88/keepsake/internal/playback"
)

// TraceEvent is one recorded engine event, read back from the trace store.
type TraceEvent struct {
	Seq       int64           `json:"seq"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Session   string          `json:"session"`
	Type      string          `json:"type"`
	Chapter   int             `json:"chapter"`
	Step      string          `json:"step,omitempty"`
	Detail    json.RawMessage `json:"detail"`
}

// FinalState is the engine state after the last action.
type FinalState struct {
	Phase          string `json:"phase"`
	Chapter        int    `json:"chapter"`
	Step           string `json:"step"`
	StepIndex      int    `json:"step_index"`
	SelectedAnswer string `json:"selected_answer"`
	CanAdvance     bool   `json:"can_advance"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every action expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every stored event, ordered by session then seq.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	State FinalState `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func finalState(e *playback.Engine) FinalState {
	s := e.State()
	fs := FinalState{
		Phase:          s.Phase.String(),
		Chapter:        s.ChapterIndex,
		StepIndex:      s.StepIndex,
		SelectedAnswer: s.SelectedAnswerKey,
		CanAdvance:     s.CanAdvance,
	}
	if k := e.CurrentStep(); k != 0 {
		fs.Step = k.String()
	}
	return fs
}
