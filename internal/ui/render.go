package ui

import (
	"strings"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/morse"
	"github.com/mattn/go-runewidth"
)

// EmptyMessage is shown in place of an empty message.
const EmptyMessage = "(message appears here)"

// CharacterLabel returns the resolved character for the pending input, the
// placeholder when it resolves to nothing, or "" when nothing is pending.
func CharacterLabel(s keyer.Snapshot) string {
	switch {
	case s.Invalid:
		return string(morse.Placeholder)
	case s.Character != 0:
		return string(s.Character)
	default:
		return ""
	}
}

// RenderPlain formats a snapshot as one unstyled line:
//
//	A B [·— A]
func RenderPlain(s keyer.Snapshot) string {
	var b strings.Builder
	b.WriteString(s.Message)
	if s.Pending != "" {
		if s.Message != "" {
			b.WriteByte(' ')
		}
		b.WriteByte('[')
		b.WriteString(morse.ToVisual(s.Pending))
		b.WriteByte(' ')
		b.WriteString(CharacterLabel(s))
		b.WriteByte(']')
	}
	return b.String()
}

// tail keeps the rightmost part of s that fits in width cells.
func tail(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	w := 0
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > width-1 {
			break
		}
		w += rw
		i--
	}
	return "…" + string(runes[i:])
}
