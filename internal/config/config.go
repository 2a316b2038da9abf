// Package config loads runtime configuration from KEEPSAKE_* environment
// variables. Every timing constant of the playback components can be tuned
// without code changes; CLI flags override the result.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/keepsake/internal/gallery"
	"github.com/roach88/keepsake/internal/gate"
	"github.com/roach88/keepsake/internal/minigame"
	"github.com/roach88/keepsake/internal/playback"
)

// Config is the full runtime configuration.
type Config struct {
	Book        string `env:"KEEPSAKE_BOOK"`
	DB          string `env:"KEEPSAKE_DB"`
	Seed        uint64 `env:"KEEPSAKE_SEED"`
	AutoAdvance bool   `env:"KEEPSAKE_AUTO_ADVANCE" envDefault:"true"`

	// Step gate
	TitleDwell       time.Duration `env:"KEEPSAKE_TITLE_DWELL"        envDefault:"1.2s"`
	QuoteFloor       time.Duration `env:"KEEPSAKE_QUOTE_FLOOR"        envDefault:"2.5s"`
	QuotePerChar     time.Duration `env:"KEEPSAKE_QUOTE_PER_CHAR"     envDefault:"60ms"`
	NoteDwell        time.Duration `env:"KEEPSAKE_NOTE_DWELL"         envDefault:"2s"`
	GameConfirm      time.Duration `env:"KEEPSAKE_GAME_CONFIRM"       envDefault:"300ms"`
	AnswerConfirm    time.Duration `env:"KEEPSAKE_ANSWER_CONFIRM"     envDefault:"1.2s"`
	RevealDwell      time.Duration `env:"KEEPSAKE_REVEAL_DWELL"       envDefault:"3s"`
	ImageDwell       time.Duration `env:"KEEPSAKE_IMAGE_DWELL"        envDefault:"800ms"`
	TransitionWindow time.Duration `env:"KEEPSAKE_TRANSITION_WINDOW"  envDefault:"400ms"`
	AnswerReveal     time.Duration `env:"KEEPSAKE_ANSWER_REVEAL"      envDefault:"500ms"`

	// Input
	DebounceWindow time.Duration `env:"KEEPSAKE_DEBOUNCE_WINDOW" envDefault:"100ms"`
	ChannelWindow  time.Duration `env:"KEEPSAKE_CHANNEL_WINDOW"  envDefault:"300ms"`

	// Mini-games
	CollectTarget    int           `env:"KEEPSAKE_COLLECT_TARGET"     envDefault:"5"`
	SpawnStagger     time.Duration `env:"KEEPSAKE_SPAWN_STAGGER"      envDefault:"400ms"`
	CelebrateDelay   time.Duration `env:"KEEPSAKE_CELEBRATE_DELAY"    envDefault:"500ms"`
	AreaWidth        float64       `env:"KEEPSAKE_AREA_WIDTH"         envDefault:"320"`
	AreaHeight       float64       `env:"KEEPSAKE_AREA_HEIGHT"        envDefault:"240"`
	TokenSize        float64       `env:"KEEPSAKE_TOKEN_SIZE"         envDefault:"50"`
	MatchView        time.Duration `env:"KEEPSAKE_MATCH_VIEW"         envDefault:"800ms"`
	MismatchFlipBack time.Duration `env:"KEEPSAKE_MISMATCH_FLIP_BACK" envDefault:"400ms"`
	MatchConfirm     time.Duration `env:"KEEPSAKE_MATCH_CONFIRM"      envDefault:"600ms"`
	MaxPairs         int           `env:"KEEPSAKE_MAX_PAIRS"          envDefault:"6"`
	FallbackPairs    int           `env:"KEEPSAKE_FALLBACK_PAIRS"     envDefault:"4"`
	GreetingDuration time.Duration `env:"KEEPSAKE_GREETING_DURATION"  envDefault:"3s"`

	// Gallery
	GalleryInFlight int           `env:"KEEPSAKE_GALLERY_IN_FLIGHT"  envDefault:"2"`
	RetryDelay      time.Duration `env:"KEEPSAKE_GALLERY_RETRY"      envDefault:"150ms"`
	MaxAttempts     int           `env:"KEEPSAKE_GALLERY_ATTEMPTS"   envDefault:"20"`
	Cooldown        time.Duration `env:"KEEPSAKE_GALLERY_COOLDOWN"   envDefault:"350ms"`
	PreloadAhead    int           `env:"KEEPSAKE_GALLERY_PRELOAD"    envDefault:"2"`
	SwipeThreshold  float64       `env:"KEEPSAKE_SWIPE_THRESHOLD"    envDefault:"50"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with every variable unset.
func Default() Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("config defaults invalid: %v", err))
	}
	return cfg
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	durations := map[string]time.Duration{
		"KEEPSAKE_TITLE_DWELL":       c.TitleDwell,
		"KEEPSAKE_QUOTE_FLOOR":       c.QuoteFloor,
		"KEEPSAKE_QUOTE_PER_CHAR":    c.QuotePerChar,
		"KEEPSAKE_NOTE_DWELL":        c.NoteDwell,
		"KEEPSAKE_GAME_CONFIRM":      c.GameConfirm,
		"KEEPSAKE_ANSWER_CONFIRM":    c.AnswerConfirm,
		"KEEPSAKE_REVEAL_DWELL":      c.RevealDwell,
		"KEEPSAKE_IMAGE_DWELL":       c.ImageDwell,
		"KEEPSAKE_TRANSITION_WINDOW": c.TransitionWindow,
		"KEEPSAKE_ANSWER_REVEAL":     c.AnswerReveal,
		"KEEPSAKE_SPAWN_STAGGER":     c.SpawnStagger,
		"KEEPSAKE_GALLERY_COOLDOWN":  c.Cooldown,
	}
	for _, name := range sortedKeys(durations) {
		if durations[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	positive := map[string]int{
		"KEEPSAKE_COLLECT_TARGET":    c.CollectTarget,
		"KEEPSAKE_MAX_PAIRS":         c.MaxPairs,
		"KEEPSAKE_FALLBACK_PAIRS":    c.FallbackPairs,
		"KEEPSAKE_GALLERY_IN_FLIGHT": c.GalleryInFlight,
		"KEEPSAKE_GALLERY_ATTEMPTS":  c.MaxAttempts,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1", name))
		}
	}
	if c.AreaWidth < c.TokenSize || c.AreaHeight < c.TokenSize {
		errs = append(errs, errors.New("play area must be at least one token wide and high"))
	}
	return errors.Join(errs...)
}

// GateTimings returns the step gate configuration.
func (c Config) GateTimings() gate.Timings {
	return gate.Timings{
		TitleDwell:       c.TitleDwell,
		QuoteFloor:       c.QuoteFloor,
		QuotePerChar:     c.QuotePerChar,
		NoteDwell:        c.NoteDwell,
		GameConfirm:      c.GameConfirm,
		AnswerConfirm:    c.AnswerConfirm,
		RevealDwell:      c.RevealDwell,
		ImageDwell:       c.ImageDwell,
		TransitionWindow: c.TransitionWindow,
	}
}

// GameTimings returns the mini-game configuration.
func (c Config) GameTimings() minigame.Timings {
	return minigame.Timings{
		CollectTarget:    c.CollectTarget,
		SpawnStagger:     c.SpawnStagger,
		CelebrateDelay:   c.CelebrateDelay,
		MatchView:        c.MatchView,
		MismatchFlipBack: c.MismatchFlipBack,
		MatchConfirm:     c.MatchConfirm,
		MaxPairs:         c.MaxPairs,
		FallbackPairs:    c.FallbackPairs,
		GreetingDuration: c.GreetingDuration,
	}
}

// Area returns the collection play area.
func (c Config) Area() minigame.Area {
	return minigame.Area{Width: c.AreaWidth, Height: c.AreaHeight, TokenSize: c.TokenSize}
}

// GalleryTimings returns the carousel configuration.
func (c Config) GalleryTimings() gallery.Timings {
	return gallery.Timings{
		MaxInFlight:    c.GalleryInFlight,
		RetryDelay:     c.RetryDelay,
		MaxAttempts:    c.MaxAttempts,
		Cooldown:       c.Cooldown,
		PreloadAhead:   c.PreloadAhead,
		SwipeThreshold: c.SwipeThreshold,
	}
}

// Playback bundles every component configuration for the engine.
func (c Config) Playback() playback.Timings {
	return playback.Timings{
		Gate:         c.GateTimings(),
		Game:         c.GameTimings(),
		Area:         c.Area(),
		Gallery:      c.GalleryTimings(),
		AnswerReveal: c.AnswerReveal,
	}
}
