package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted playback run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Book is the content path, relative to the scenario file location.
	Book string `yaml:"book"`

	// Seed fixes mini-game shuffles and spawn positions.
	Seed uint64 `yaml:"seed,omitempty"`

	// AutoAdvance overrides the engine default (on).
	AutoAdvance *bool `yaml:"auto_advance,omitempty"`

	// FailImages lists image paths whose loads fail.
	FailImages []string `yaml:"fail_images,omitempty"`

	// Steps are executed in order.
	Steps []Action `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Action is one scripted interaction.
type Action struct {
	Do       string        `yaml:"do"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Key      string        `yaml:"key,omitempty"`
	ID       int           `yaml:"id,omitempty"`
	DX       float64       `yaml:"dx,omitempty"`
	Chapter  int           `yaml:"chapter,omitempty"`

	// Limit bounds the number of ticks of a play action.
	Limit int `yaml:"limit,omitempty"`

	// Expect is the required outcome; empty skips the check.
	Expect string `yaml:"expect,omitempty"`
}

// Action names.
const (
	ActStart    = "start"
	ActRestart  = "restart"
	ActWait     = "wait"
	ActAdvance  = "advance"
	ActAnswer   = "answer"
	ActCollect  = "collect"
	ActFlip     = "flip"
	ActNext     = "next"
	ActPrev     = "prev"
	ActSwipe    = "swipe"
	ActGoto     = "goto"
	ActRevealed = "revealed"
	ActPlay     = "play"
)

// Outcome strings used by Action.Expect.
const (
	OutcomeOK       = "ok"
	OutcomeAllowed  = "allowed"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Event is the event type (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Detail is a subset of the event detail (trace_contains, trace_count).
	Detail map[string]any `yaml:"detail,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order of event types (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Expect is a subset of the final state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. The book path is
// resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML, resolving the book path against
// basePath when it is relative.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Book != "" && !filepath.IsAbs(scenario.Book) && basePath != "" {
		scenario.Book = filepath.Join(basePath, scenario.Book)
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
	if s.Book == "" {
		return fmt.Errorf("book is required")
	}
	if _, err := os.Stat(s.Book); os.IsNotExist(err) {
		return fmt.Errorf("book not found: %s", s.Book)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Steps {
		if err := validateAction(i, &a); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(index int, a *Action) error {
	switch a.Do {
	case "":
		return fmt.Errorf("steps[%d]: do is required", index)
	case ActWait:
		if a.Duration <= 0 {
			return fmt.Errorf("steps[%d]: wait needs a positive duration", index)
		}
	case ActAnswer:
		if a.Key == "" {
			return fmt.Errorf("steps[%d]: answer needs a key", index)
		}
	case ActPlay:
		if a.Limit < 0 {
			return fmt.Errorf("steps[%d]: limit must be non-negative", index)
		}
	case ActStart, ActRestart, ActAdvance, ActCollect, ActFlip,
		ActNext, ActPrev, ActSwipe, ActGoto, ActRevealed:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, a.Do)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for key := range a.Expect {
			if !finalStateKeys[key] {
				return fmt.Errorf("assertions[%d]: unknown final_state key %q", index, key)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

var finalStateKeys = map[string]bool{
	"phase":           true,
	"chapter":         true,
	"step":            true,
	"step_index":      true,
	"selected_answer": true,
	"can_advance":     true,
}
