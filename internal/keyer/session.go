package keyer

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/morse"
)

var (
	// ErrNothingToUndo is a notice: the history is empty and state is unchanged
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrAlreadyEmpty is a notice: there is nothing to clear and state is unchanged
	ErrAlreadyEmpty = errors.New("already empty")
	// ErrAlreadyPressed indicates a press started while the key was already down
	ErrAlreadyPressed = errors.New("key already pressed")
	// ErrNotPressed indicates a release arrived while the key was up
	ErrNotPressed = errors.New("key not pressed")
	// ErrInvalidTiming indicates a release timestamp earlier than its press
	ErrInvalidTiming = errors.New("release precedes press")
)

// IsNotice reports whether err is a user-facing notice rather than a rejected event.
func IsNotice(err error) bool {
	return errors.Is(err, ErrNothingToUndo) || errors.Is(err, ErrAlreadyEmpty)
}

// KeyState is the physical state of the key.
type KeyState int

const (
	// Idle means the key is up
	Idle KeyState = iota
	// Pressed means the key is down and a press is being timed
	Pressed
)

func (s KeyState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

// Snapshot is what a presenter needs to draw the session.
type Snapshot struct {
	// State is the key state after the command
	State KeyState
	// Pending is the in-progress character as canonical symbols
	Pending string
	// Character is the resolution of Pending (0 when Pending is empty or unresolved)
	Character rune
	// Invalid is true when Pending is non-empty and resolves to nothing
	Invalid bool
	// Message is the committed output
	Message string
	// History is the number of undoable entries
	History int
}

// SnapshotCallback receives the state after every command.
// It runs outside the session lock, so it may call back into the session.
type SnapshotCallback func(snap Snapshot)

// historyEntry is either a symbol or a character boundary.
type historyEntry struct {
	symbol   morse.Symbol
	boundary bool
}

// Session owns all keying state for one user. Every command is applied to
// completion under the session lock.
type Session struct {
	config Config
	codec  *morse.Codec
	logger *slog.Logger

	mu sync.Mutex

	state     KeyState
	pressedAt time.Duration

	pending []morse.Symbol
	history []historyEntry
	message []rune

	lastRelease    time.Duration
	hasLastRelease bool

	callbackPtr *SnapshotCallback
}

// NewSession creates an empty session.
func NewSession(cfg Config, codec *morse.Codec) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, ErrCodecRequired
	}
	return &Session{
		config: cfg,
		codec:  codec,
		logger: slog.New(slog.DiscardHandler),
		state:  Idle,
	}, nil
}

// SetCallback sets the snapshot callback. nil removes it.
func (s *Session) SetCallback(cb SnapshotCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb == nil {
		s.callbackPtr = nil
	} else {
		s.callbackPtr = &cb
	}
}

// SetLogger sets the logger used for debug tracing. nil discards.
func (s *Session) SetLogger(l *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	s.logger = l
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// Down records the key going down at the given time.
func (s *Session) Down(at time.Duration) (Snapshot, error) {
	s.mu.Lock()
	if s.state == Pressed {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrAlreadyPressed
	}
	s.state = Pressed
	s.pressedAt = at
	return s.commit()
}

// Up records the key coming up and classifies the completed press.
func (s *Session) Up(at time.Duration) (Snapshot, error) {
	s.mu.Lock()
	if s.state != Pressed {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrNotPressed
	}
	if at < s.pressedAt {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrInvalidTiming
	}
	s.state = Idle
	s.release(s.pressedAt, at)
	return s.commit()
}

// Press applies one complete press/release cycle.
func (s *Session) Press(start, end time.Duration) (Snapshot, error) {
	s.mu.Lock()
	if s.state == Pressed {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrAlreadyPressed
	}
	if end < start {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrInvalidTiming
	}
	s.release(start, end)
	return s.commit()
}

// release handles a completed press: word pause, classification, history.
func (s *Session) release(start, end time.Duration) {
	if s.hasLastRelease && start-s.lastRelease > s.config.PauseThreshold && len(s.pending) > 0 {
		s.finalize()
		s.message = append(s.message, ' ')
		s.logger.Debug("word gap", "gap", start-s.lastRelease)
	}
	s.lastRelease = end
	s.hasLastRelease = true

	sym := s.classify(end - start)
	s.pending = append(s.pending, sym)
	s.history = append(s.history, historyEntry{symbol: sym})
	s.logger.Debug("symbol", "symbol", sym.String(), "duration", end-start, "pending", s.pendingString())
}

func (s *Session) classify(d time.Duration) morse.Symbol {
	if d < s.config.DotThreshold {
		return morse.Dot
	}
	return morse.Dash
}

// SeparateCharacter commits the pending character. With nothing pending it does nothing.
func (s *Session) SeparateCharacter() (Snapshot, error) {
	s.mu.Lock()
	if len(s.pending) > 0 {
		s.finalize()
	}
	return s.commit()
}

// finalize resolves the pending sequence into the message and marks a boundary.
func (s *Session) finalize() {
	seq := s.pendingString()
	r, ok := s.codec.SequenceToCharacter(seq)
	if !ok {
		r = morse.Placeholder
	}
	s.message = append(s.message, r)
	s.history = append(s.history, historyEntry{boundary: true})
	s.pending = s.pending[:0]
	s.logger.Debug("character", "sequence", seq, "char", string(r), "resolved", ok)
}

// Undo reverts the most recent history entry.
//
// Undoing a boundary restores the character's symbols as pending input and drops
// the last message character. Undoing a symbol drops it from the pending input
// and, unless UndoKeepsCommitted is set, also drops the last message character.
func (s *Session) Undo() (Snapshot, error) {
	s.mu.Lock()
	if len(s.history) == 0 {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrNothingToUndo
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	if last.boundary {
		start := len(s.history)
		for start > 0 && !s.history[start-1].boundary {
			start--
		}
		restored := make([]morse.Symbol, 0, len(s.history)-start)
		for _, e := range s.history[start:] {
			restored = append(restored, e.symbol)
		}
		s.history = s.history[:start]
		s.pending = restored
		s.dropLastMessageRune()
		s.logger.Debug("undo boundary", "pending", s.pendingString())
	} else {
		if len(s.pending) > 0 {
			s.pending = s.pending[:len(s.pending)-1]
		}
		if !s.config.UndoKeepsCommitted {
			s.dropLastMessageRune()
		}
		s.logger.Debug("undo symbol", "pending", s.pendingString())
	}

	return s.commit()
}

func (s *Session) dropLastMessageRune() {
	if len(s.message) > 0 {
		s.message = s.message[:len(s.message)-1]
	}
}

// Clear resets the pending input, history and message.
// It reports ErrAlreadyEmpty, leaving state untouched, when there is nothing to clear.
func (s *Session) Clear() (Snapshot, error) {
	s.mu.Lock()
	if len(s.pending) == 0 && len(s.message) == 0 {
		snap := s.snapshot()
		s.mu.Unlock()
		return snap, ErrAlreadyEmpty
	}
	s.pending = nil
	s.history = nil
	s.message = nil
	s.lastRelease = 0
	s.hasLastRelease = false
	s.logger.Debug("clear")
	return s.commit()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// commit takes a snapshot, releases the lock and notifies the callback.
// The caller must hold s.mu.
func (s *Session) commit() (Snapshot, error) {
	snap := s.snapshot()
	cbPtr := s.callbackPtr
	s.mu.Unlock()
	if cbPtr != nil {
		(*cbPtr)(snap)
	}
	return snap, nil
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:   s.state,
		Pending: s.pendingString(),
		Message: string(s.message),
		History: len(s.history),
	}
	if snap.Pending != "" {
		if r, ok := s.codec.SequenceToCharacter(snap.Pending); ok {
			snap.Character = r
		} else {
			snap.Invalid = true
		}
	}
	return snap
}

func (s *Session) pendingString() string {
	var b strings.Builder
	b.Grow(len(s.pending))
	for _, sym := range s.pending {
		b.WriteByte(byte(sym))
	}
	return b.String()
}
