package chapter

import "strings"

// MinigameKind is the authored mini-game name of a chapter.
//
// Content is authored outside the program, so any string may appear here.
// ResolveKind maps it onto the closed set below; unknown values fall back to
// KindHearts.
type MinigameKind string

const (
	KindHearts  MinigameKind = "hearts"
	KindFlowers MinigameKind = "flowers"
	KindBubbles MinigameKind = "bubbles"
	KindStars   MinigameKind = "stars"
	KindMemory  MinigameKind = "memory"
	KindAnimate MinigameKind = "animate"

	// KindFallback is used for empty or unrecognised kinds.
	KindFallback = KindHearts
)

// GameVariant selects which mini-game state machine runs.
type GameVariant int

const (
	VariantCollection GameVariant = iota + 1
	VariantMemoryMatch
	VariantGreeting
)

// String returns the variant name used in logs and traces.
func (v GameVariant) String() string {
	switch v {
	case VariantCollection:
		return "collection"
	case VariantMemoryMatch:
		return "memory_match"
	case VariantGreeting:
		return "greeting"
	default:
		return "unknown"
	}
}

type kindInfo struct {
	variant GameVariant
	icons   []string
}

var kinds = map[MinigameKind]kindInfo{
	KindHearts:  {VariantCollection, []string{"💕", "💗", "💖", "💝", "❤️"}},
	KindFlowers: {VariantCollection, []string{"🌸", "🌺", "🌹", "🌷", "💐"}},
	KindBubbles: {VariantCollection, []string{"🫧", "💭", "🔮", "⭕", "🌀"}},
	KindStars:   {VariantCollection, []string{"⭐", "🌟", "✨", "💫", "🌠"}},
	KindMemory:  {VariantMemoryMatch, []string{"🍓", "🍒", "🍑", "🍋", "🫐", "🍇"}},
	KindAnimate: {VariantGreeting, []string{"👋", "💌"}},
}

// ResolveKind normalises an authored kind. Matching is case-insensitive and
// ignores surrounding whitespace. Unknown and empty kinds resolve to
// KindFallback.
func ResolveKind(k MinigameKind) MinigameKind {
	norm := MinigameKind(strings.ToLower(strings.TrimSpace(string(k))))
	if _, ok := kinds[norm]; ok {
		return norm
	}
	return KindFallback
}

// Known reports whether the kind names an entry of the static table without
// falling back.
func (k MinigameKind) Known() bool {
	_, ok := kinds[MinigameKind(strings.ToLower(strings.TrimSpace(string(k))))]
	return ok
}

// Variant returns the mini-game variant of the resolved kind.
func (k MinigameKind) Variant() GameVariant {
	return kinds[ResolveKind(k)].variant
}

// Icons returns the icon set of the resolved kind. The returned slice is a
// copy.
func (k MinigameKind) Icons() []string {
	icons := kinds[ResolveKind(k)].icons
	out := make([]string, len(icons))
	copy(out, icons)
	return out
}

// IsAnimate reports whether the kind resolves to the greeting animation.
func (k MinigameKind) IsAnimate() bool {
	return ResolveKind(k) == KindAnimate
}
