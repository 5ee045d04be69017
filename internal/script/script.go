// Package script replays recorded keying against a keyer.Session.
//
// A script is a YAML document:
//
//	name: undo a dash
//	steps:
//	  - {action: press, ms: 100}
//	  - {action: gap, ms: 200}
//	  - {action: press, ms: 600}
//	  - {action: undo}
//
// Time only moves through press and gap steps, so replays are deterministic.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoSteps is returned for a script without steps.
	ErrNoSteps = errors.New("script has no steps")
	// ErrUnknownAction is returned for an unrecognized step action.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNegativeDuration is returned for a step with ms below zero.
	ErrNegativeDuration = errors.New("negative duration")
)

// Actions understood by Run.
const (
	ActionPress    = "press"
	ActionGap      = "gap"
	ActionWait     = "wait"
	ActionDown     = "down"
	ActionUp       = "up"
	ActionSeparate = "separate"
	ActionUndo     = "undo"
	ActionClear    = "clear"
)

// Step is one scripted input.
type Step struct {
	Action string `yaml:"action"`
	// Ms is the hold time for press or the idle time for gap/wait
	Ms int `yaml:"ms,omitempty"`
}

// Duration returns Ms as a time.Duration.
func (s Step) Duration() time.Duration {
	return time.Duration(s.Ms) * time.Millisecond
}

func (s Step) String() string {
	if s.Ms != 0 {
		return fmt.Sprintf("%s %dms", s.Action, s.Ms)
	}
	return s.Action
}

// Script is a named sequence of steps.
type Script struct {
	Name  string `yaml:"name,omitempty"`
	Steps []Step `yaml:"steps"`
}

// Result records the outcome of one step.
type Result struct {
	Index    int
	Step     Step
	At       time.Duration
	Snapshot keyer.Snapshot
	// Notice is set when the step was a no-op undo or clear
	Notice error
}

// Parse decodes and validates a script. Unknown fields are rejected.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Validate checks every step, joining all problems.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	var errs []error
	for i, step := range s.Steps {
		switch step.Action {
		case ActionPress, ActionGap, ActionWait, ActionDown, ActionUp,
			ActionSeparate, ActionUndo, ActionClear:
		default:
			errs = append(errs, fmt.Errorf("step %d: %w %q", i+1, ErrUnknownAction, step.Action))
		}
		if step.Ms < 0 {
			errs = append(errs, fmt.Errorf("step %d: %w %d", i+1, ErrNegativeDuration, step.Ms))
		}
	}
	return errors.Join(errs...)
}

// Run applies the steps in order, reading time from clock.
//
// Notices from undo and clear are recorded on the result. Any other session
// error stops the run and is returned with the results so far.
func Run(s *Script, session *keyer.Session, clock *keyer.ManualClock) ([]Result, error) {
	results := make([]Result, 0, len(s.Steps))
	for i, step := range s.Steps {
		snap, err := apply(step, session, clock)
		res := Result{Index: i, Step: step, At: clock.Now(), Snapshot: snap}
		if err != nil {
			if !keyer.IsNotice(err) {
				return results, fmt.Errorf("step %d (%s): %w", i+1, step, err)
			}
			res.Notice = err
		}
		results = append(results, res)
	}
	return results, nil
}

func apply(step Step, session *keyer.Session, clock *keyer.ManualClock) (keyer.Snapshot, error) {
	switch step.Action {
	case ActionPress:
		start := clock.Now()
		end := clock.Advance(step.Duration())
		return session.Press(start, end)
	case ActionGap, ActionWait:
		clock.Advance(step.Duration())
		return session.Snapshot(), nil
	case ActionDown:
		return session.Down(clock.Now())
	case ActionUp:
		return session.Up(clock.Now())
	case ActionSeparate:
		return session.SeparateCharacter()
	case ActionUndo:
		return session.Undo()
	case ActionClear:
		return session.Clear()
	default:
		return session.Snapshot(), fmt.Errorf("%w %q", ErrUnknownAction, step.Action)
	}
}
