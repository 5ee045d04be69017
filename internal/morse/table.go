// Package morse holds the ITU symbol table and the codec that translates between
// Morse sequences, characters and whole messages.
package morse

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"unicode"
)

var (
	// ErrUnknownCharacter indicates the character has no Morse code in the table
	ErrUnknownCharacter = errors.New("unknown character")
	// ErrUnknownSequence indicates the Morse sequence maps to no character
	ErrUnknownSequence = errors.New("unknown sequence")
	// ErrEmptyCode indicates a table entry has no symbols
	ErrEmptyCode = errors.New("morse code must not be empty")
	// ErrInvalidCode indicates a table entry contains something other than dots and dashes
	ErrInvalidCode = errors.New("morse code may only contain '.' and '-'")
)

// Symbol is a single keyed element.
type Symbol byte

const (
	// Dot is the short element
	Dot Symbol = '.'
	// Dash is the long element
	Dash Symbol = '-'
)

func (s Symbol) String() string {
	return string(rune(s))
}

// Entry pairs a character with its canonical Morse code.
type Entry struct {
	Char rune
	Code string
}

// ituEntries is the reference table. Order matters: when two characters share a
// code the later one wins in the reverse direction.
var ituEntries = []Entry{
	// Letters
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},

	// Digits
	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"}, {'4', "....-"},
	{'5', "....."}, {'6', "-...."}, {'7', "--..."}, {'8', "---.."}, {'9', "----."},

	// Punctuation
	{'.', ".-.-.-"}, {',', "--..--"}, {'?', "..--.."}, {'\'', ".----."},
	{'!', "-.-.--"}, {'/', "-..-."}, {'(', "-.--.-"}, {')', "-.--.-"},
	{'&', ".-..."}, {':', "---..."}, {';', "-.-.-."}, {'=', "-...-"},
	{'+', ".-.-."}, {'-', "-....-"}, {'_', "..--.-"}, {'"', ".-..-."},
	{'$', "...-..-"}, {'@', ".--.-."},
}

// Table is an immutable bidirectional character/code mapping.
type Table struct {
	entries []Entry
	forward map[rune]string
	reverse map[string]rune
}

// NewTable builds a table from entries in order. Characters are stored upper case.
// Duplicate codes are allowed; the reverse lookup keeps the last entry.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		forward: make(map[rune]string, len(entries)),
		reverse: make(map[string]rune, len(entries)),
	}
	for _, e := range entries {
		if err := validateCode(e.Code); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Char, err)
		}
		ch := unicode.ToUpper(e.Char)
		t.entries = append(t.entries, Entry{Char: ch, Code: e.Code})
		t.forward[ch] = e.Code
		t.reverse[e.Code] = ch
	}
	return t, nil
}

func validateCode(code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	for i := 0; i < len(code); i++ {
		if Symbol(code[i]) != Dot && Symbol(code[i]) != Dash {
			return ErrInvalidCode
		}
	}
	return nil
}

var ituTable = sync.OnceValue(func() *Table {
	t, err := NewTable(ituEntries)
	if err != nil {
		panic(err)
	}
	return t
})

// ITU returns the shared reference table.
func ITU() *Table {
	return ituTable()
}

// Encode returns the code for r, ignoring case.
func (t *Table) Encode(r rune) (string, error) {
	code, ok := t.forward[unicode.ToUpper(r)]
	if !ok {
		return "", ErrUnknownCharacter
	}
	return code, nil
}

// Decode returns the character for a canonical code.
func (t *Table) Decode(code string) (rune, error) {
	r, ok := t.reverse[code]
	if !ok {
		return 0, ErrUnknownSequence
	}
	return r, nil
}

// SupportedCharacters returns every encodable character sorted by code point.
func (t *Table) SupportedCharacters() []rune {
	chars := make([]rune, 0, len(t.forward))
	for r := range t.forward {
		chars = append(chars, r)
	}
	slices.Sort(chars)
	return chars
}

// Entries returns a copy of the table in construction order.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Len returns the number of forward entries.
func (t *Table) Len() int {
	return len(t.forward)
}
