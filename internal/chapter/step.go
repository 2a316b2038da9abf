package chapter

// StepKind tags one screen of a chapter's playback.
type StepKind int

const (
	StepTitle StepKind = iota + 1
	StepQuote
	StepNote
	StepGame
	StepQuestion
	StepReveal
	StepImage
)

var stepNames = map[StepKind]string{
	StepTitle:    "Title",
	StepQuote:    "Quote",
	StepNote:     "Note",
	StepGame:     "Game",
	StepQuestion: "Question",
	StepReveal:   "Reveal",
	StepImage:    "Image",
}

// String returns the step name ("Title", "Quote", ...).
func (k StepKind) String() string {
	if name, ok := stepNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseStepKind is the inverse of String.
func ParseStepKind(name string) (StepKind, bool) {
	for k, n := range stepNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Step is one entry of a chapter's step sequence.
type Step struct {
	Kind StepKind
}

// Sequence is the ordered step list of one chapter load.
type Sequence []Step

// Kinds returns the step kinds in order.
func (s Sequence) Kinds() []StepKind {
	out := make([]StepKind, len(s))
	for i, st := range s {
		out[i] = st.Kind
	}
	return out
}

// Contains reports whether any step has the given kind.
func (s Sequence) Contains(kind StepKind) bool {
	for _, st := range s {
		if st.Kind == kind {
			return true
		}
	}
	return false
}

// Names returns the step names in order.
func (s Sequence) Names() []string {
	out := make([]string, len(s))
	for i, st := range s {
		out[i] = st.Kind.String()
	}
	return out
}
