package chapter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Chapter is one memory entry in the narrative.
//
// Optional fields (Note, Question, Answers, Images) may be empty. Consumers
// treat empty and whitespace-only strings as absent; nothing in the playback
// path fails on a missing optional field.
type Chapter struct {
	Order         int          `yaml:"order" json:"order"`
	MonthLabel    string       `yaml:"month_label" json:"month_label"`
	Title         string       `yaml:"title,omitempty" json:"title,omitempty"`
	NarrativeText string       `yaml:"narrative,omitempty" json:"narrative,omitempty"`
	Note          string       `yaml:"note,omitempty" json:"note,omitempty"`
	Question      string       `yaml:"question,omitempty" json:"question,omitempty"`
	Answers       Answers      `yaml:"answers,omitempty" json:"answers,omitempty"`
	CorrectKey    string       `yaml:"correct_key,omitempty" json:"correct_key,omitempty"`
	Images        []string     `yaml:"images,omitempty" json:"images,omitempty"`
	Caption       string       `yaml:"caption,omitempty" json:"caption,omitempty"`
	MinigameKind  MinigameKind `yaml:"minigame,omitempty" json:"minigame,omitempty"`
}

// HasQuestion reports whether the chapter carries a non-blank question.
func (c Chapter) HasQuestion() bool {
	return strings.TrimSpace(c.Question) != ""
}

// HasNarrative reports whether the chapter carries non-blank narrative text.
func (c Chapter) HasNarrative() bool {
	return strings.TrimSpace(c.NarrativeText) != ""
}

// HasNote reports whether the chapter carries a non-blank note.
func (c Chapter) HasNote() bool {
	return strings.TrimSpace(c.Note) != ""
}

// Correct returns the answer marked correct, if the mapping contains it.
func (c Chapter) Correct() (Answer, bool) {
	return c.Answers.Lookup(c.CorrectKey)
}

// Answer is one selectable choice of a chapter question.
type Answer struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Answers is an ordered key→text mapping with unique keys.
//
// Order is the authored order; presentation lists answers in that order.
type Answers []Answer

// Lookup returns the answer with the given key.
func (a Answers) Lookup(key string) (Answer, bool) {
	for _, ans := range a {
		if ans.Key == key {
			return ans, true
		}
	}
	return Answer{}, false
}

// Keys returns the answer keys in authored order.
func (a Answers) Keys() []string {
	keys := make([]string, len(a))
	for i, ans := range a {
		keys[i] = ans.Key
	}
	return keys
}

// UnmarshalYAML decodes a YAML mapping while preserving key order.
// Duplicate keys are rejected.
func (a *Answers) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("answers: expected mapping, got %s", nodeKindName(node.Kind))
	}

	out := make(Answers, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, text string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("answers: key: %w", err)
		}
		if err := node.Content[i+1].Decode(&text); err != nil {
			return fmt.Errorf("answers[%q]: %w", key, err)
		}
		if seen[key] {
			return fmt.Errorf("answers: duplicate key %q", key)
		}
		seen[key] = true
		out = append(out, Answer{Key: key, Text: text})
	}

	*a = out
	return nil
}

// MarshalYAML encodes the answers as an ordered mapping.
func (a Answers) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ans := range a {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: ans.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: ans.Text},
		)
	}
	return node, nil
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// Ending is the closing screen shown after the last chapter.
type Ending struct {
	Message    string `yaml:"message" json:"message"`
	ButtonText string `yaml:"button_text,omitempty" json:"button_text,omitempty"`
	ButtonLink string `yaml:"button_link,omitempty" json:"button_link,omitempty"`
}

// Book is a complete authored narrative: chapters in play order plus the ending.
type Book struct {
	Title    string    `yaml:"title,omitempty" json:"title,omitempty"`
	Chapters []Chapter `yaml:"chapters" json:"chapters"`
	Ending   Ending    `yaml:"ending,omitempty" json:"ending,omitempty"`
}

// CoverImage returns the first supported image of the chapter.
// The ending collage uses one cover per chapter.
func (c Chapter) CoverImage() (string, bool) {
	imgs := SupportedImages(c.Images)
	if len(imgs) == 0 {
		return "", false
	}
	return imgs[0], true
}
