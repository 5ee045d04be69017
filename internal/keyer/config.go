// Package keyer turns timed press/release events from a single key into Morse
// symbols, characters and words, with an undoable history.
package keyer

import (
	"errors"
	"time"
)

// Timing defaults, in line with a comfortable hand-keyed pace
const (
	// DefaultDotThreshold separates dots from dashes: shorter presses are dots
	DefaultDotThreshold = 500 * time.Millisecond
	// DefaultPauseThreshold is the idle gap after which the next press starts a new word
	DefaultPauseThreshold = 1000 * time.Millisecond
)

var (
	// ErrInvalidDotThreshold indicates the dot threshold must be positive
	ErrInvalidDotThreshold = errors.New("dot threshold must be positive")
	// ErrInvalidPauseThreshold indicates the pause threshold must be positive
	ErrInvalidPauseThreshold = errors.New("pause threshold must be positive")
	// ErrCodecRequired indicates a codec instance is required
	ErrCodecRequired = errors.New("codec instance is required")
)

// Config holds the session timing and undo behaviour.
// All adjustable values come from the application config file.
type Config struct {
	// DotThreshold is the press duration below which a press is a dot (from config: dot_threshold_ms)
	DotThreshold time.Duration
	// PauseThreshold is the release-to-press gap that separates words (from config: pause_threshold_ms)
	PauseThreshold time.Duration
	// UndoKeepsCommitted stops symbol-level undo from trimming the committed message
	// (from config: undo_keeps_committed)
	UndoKeepsCommitted bool
}

// DefaultConfig returns the stock thresholds with the compatible undo behaviour.
func DefaultConfig() Config {
	return Config{
		DotThreshold:   DefaultDotThreshold,
		PauseThreshold: DefaultPauseThreshold,
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.DotThreshold <= 0 {
		return ErrInvalidDotThreshold
	}
	if c.PauseThreshold <= 0 {
		return ErrInvalidPauseThreshold
	}
	return nil
}
