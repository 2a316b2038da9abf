// Package sequence builds the ordered step list of a chapter.
//
// Build is pure: the same chapter always yields the same sequence, and the
// chapter is never modified. It is the single place that decides which steps
// a chapter has, so every other component can treat the sequence as given.
package sequence

import (
	"fmt"

	"github.com/roach88/keepsake/internal/chapter"
)

// Branch names the two shapes a sequence can take.
type Branch string

const (
	// BranchNarrative is used by animate chapters and chapters without a question.
	BranchNarrative Branch = "narrative"
	// BranchQuiz is used by chapters with a question and an interactive game.
	BranchQuiz Branch = "quiz"
)

// BranchFor returns the branch Build takes for c.
func BranchFor(c chapter.Chapter) Branch {
	if c.MinigameKind.IsAnimate() || !c.HasQuestion() {
		return BranchNarrative
	}
	return BranchQuiz
}

// Build returns the chapter's steps. The result always starts with Title and
// ends with Image.
func Build(c chapter.Chapter) chapter.Sequence {
	seq := chapter.Sequence{{Kind: chapter.StepTitle}}

	switch BranchFor(c) {
	case BranchNarrative:
		if c.HasNarrative() {
			seq = append(seq, chapter.Step{Kind: chapter.StepQuote})
		}
	case BranchQuiz:
		seq = append(seq,
			chapter.Step{Kind: chapter.StepGame},
			chapter.Step{Kind: chapter.StepQuestion},
			chapter.Step{Kind: chapter.StepReveal},
		)
	}

	if c.HasNote() {
		seq = append(seq, chapter.Step{Kind: chapter.StepNote})
	}

	return append(seq, chapter.Step{Kind: chapter.StepImage})
}

// Warnings reports chapters that load but cannot be played through. A quiz
// chapter without answers stays on its Question step until goto or restart,
// and a correct key missing from the answers reveals no correct answer.
func Warnings(c chapter.Chapter) []string {
	if BranchFor(c) != BranchQuiz {
		return nil
	}
	if len(c.Answers) == 0 {
		return []string{"question has no answers; its Question step can only be left with goto or restart"}
	}
	if _, ok := c.Correct(); !ok {
		return []string{fmt.Sprintf("correct_key %q matches no answer", c.CorrectKey)}
	}
	return nil
}
