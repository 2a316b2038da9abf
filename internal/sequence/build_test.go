package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/keepsake/internal/chapter"
)

func kinds(ks ...chapter.StepKind) []chapter.StepKind { return ks }

func TestBuild(t *testing.T) {
	const (
		title    = chapter.StepTitle
		quote    = chapter.StepQuote
		note     = chapter.StepNote
		game     = chapter.StepGame
		question = chapter.StepQuestion
		reveal   = chapter.StepReveal
		image    = chapter.StepImage
	)

	tests := []struct {
		name string
		in   chapter.Chapter
		want []chapter.StepKind
	}{
		{
			name: "image only",
			in:   chapter.Chapter{Images: []string{"a.jpg"}},
			want: kinds(title, image),
		},
		{
			name: "note without question",
			in:   chapter.Chapter{Note: "hi", Images: []string{"a.jpg"}},
			want: kinds(title, note, image),
		},
		{
			name: "narrative and note",
			in:   chapter.Chapter{NarrativeText: "once", Note: "hi"},
			want: kinds(title, quote, note, image),
		},
		{
			name: "question without text or note",
			in:   chapter.Chapter{Question: "Where?"},
			want: kinds(title, game, question, reveal, image),
		},
		{
			name: "question with note",
			in:   chapter.Chapter{Question: "Where?", Note: "hi", NarrativeText: "ignored in quiz"},
			want: kinds(title, game, question, reveal, note, image),
		},
		{
			name: "animate with question takes narrative branch",
			in:   chapter.Chapter{Question: "Where?", NarrativeText: "hello", MinigameKind: chapter.KindAnimate},
			want: kinds(title, quote, image),
		},
		{
			name: "blank question is narrative",
			in:   chapter.Chapter{Question: "  ", NarrativeText: "once"},
			want: kinds(title, quote, image),
		},
		{
			name: "unknown kind with question is quiz",
			in:   chapter.Chapter{Question: "Q", MinigameKind: "fireworks"},
			want: kinds(title, game, question, reveal, image),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.in).Kinds())
		})
	}
}

func TestBuildEndpointsAlwaysTitleAndImage(t *testing.T) {
	texts := []string{"", " ", "x"}
	kindsUnderTest := []chapter.MinigameKind{"", "hearts", "memory", "animate", "??"}

	for _, q := range texts {
		for _, n := range texts {
			for _, nt := range texts {
				for _, k := range kindsUnderTest {
					c := chapter.Chapter{Question: q, Note: n, NarrativeText: nt, MinigameKind: k}
					seq := Build(c)
					assert.Equal(t, chapter.StepTitle, seq[0].Kind)
					assert.Equal(t, chapter.StepImage, seq[len(seq)-1].Kind)

					if !c.HasQuestion() {
						assert.False(t, seq.Contains(chapter.StepGame))
						assert.False(t, seq.Contains(chapter.StepQuestion))
						assert.False(t, seq.Contains(chapter.StepReveal))
					}
				}
			}
		}
	}
}

func TestBuildIsPure(t *testing.T) {
	c := chapter.Chapter{Question: "Q", Note: "n", Images: []string{"a.jpg"}}
	before := c
	first := Build(c)
	second := Build(c)
	assert.Equal(t, first, second)
	assert.Equal(t, before, c)
}

func TestBranchFor(t *testing.T) {
	assert.Equal(t, BranchQuiz, BranchFor(chapter.Chapter{Question: "Q"}))
	assert.Equal(t, BranchNarrative, BranchFor(chapter.Chapter{}))
	assert.Equal(t, BranchNarrative, BranchFor(chapter.Chapter{Question: "Q", MinigameKind: "animate"}))
}

func TestWarnings(t *testing.T) {
	answers := chapter.Answers{{Key: "a", Text: "A"}, {Key: "b", Text: "B"}}

	tests := []struct {
		name string
		in   chapter.Chapter
		want []string
	}{
		{
			name: "narrative chapter",
			in:   chapter.Chapter{Note: "hi"},
		},
		{
			name: "animate chapter ignores its question",
			in:   chapter.Chapter{Question: "q?", MinigameKind: chapter.KindAnimate},
		},
		{
			name: "playable quiz",
			in:   chapter.Chapter{Question: "q?", Answers: answers, CorrectKey: "b"},
		},
		{
			name: "quiz without answers",
			in:   chapter.Chapter{Question: "q?", CorrectKey: "b"},
			want: []string{"question has no answers; its Question step can only be left with goto or restart"},
		},
		{
			name: "correct key missing",
			in:   chapter.Chapter{Question: "q?", Answers: answers, CorrectKey: "z"},
			want: []string{`correct_key "z" matches no answer`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Warnings(tt.in))
		})
	}
}
