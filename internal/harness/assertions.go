package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Type, ev.Detail)
		}
	}

	return buf.String()
}

// assertTraceContains checks that some event of the type carries the
// expected detail fields (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	if countMatches(trace, assertion) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s with detail %v", assertion.Event, assertion.Detail),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that event types first appear in the given order.
// Events don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if positions[ev.Type] == 0 {
			positions[ev.Type] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range assertion.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the event appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := countMatches(trace, assertion)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares the expected fields against the final state.
func assertFinalState(state FinalState, assertion Assertion) error {
	actual, err := normalize(state)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	actualMap, _ := actual.(map[string]any)

	var mismatches []string
	for _, key := range slices.Sorted(maps.Keys(assertion.Expect)) {
		want, err := normalize(assertion.Expect[key])
		if err != nil {
			return fmt.Errorf("final_state: %s: %w", key, err)
		}
		if !valuesEqual(actualMap[key], want) {
			mismatches = append(mismatches, fmt.Sprintf("%s=%v (want %v)", key, actualMap[key], want))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%v", assertion.Expect),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func countMatches(trace []TraceEvent, assertion Assertion) int {
	n := 0
	for _, ev := range trace {
		if ev.Type == assertion.Event && matchDetail(ev.Detail, assertion.Detail) {
			n++
		}
	}
	return n
}

// matchDetail reports whether raw contains every expected field.
func matchDetail(raw json.RawMessage, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	decoded, err := decode(raw)
	if err != nil {
		return false
	}
	actual, ok := decoded.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expected {
		got, present := actual[key]
		if !present {
			return false
		}
		norm, err := normalize(want)
		if err != nil || !valuesEqual(got, norm) {
			return false
		}
	}
	return true
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// stored details compare on equal terms.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// valuesEqual compares two normalized values.
// Handles nested maps and slices.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
