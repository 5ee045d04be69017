package morse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Visual glyphs used when sequences are shown to a person
const (
	DotGlyph  = "·" // U+00B7 middle dot
	DashGlyph = "—" // U+2014 em dash

	// Placeholder is substituted for anything that cannot be translated
	Placeholder = '?'

	// CharSeparator splits character codes inside a word
	CharSeparator = " "
	// WordSeparator splits words in Morse text
	WordSeparator = "   "
)

var (
	toCanonical = strings.NewReplacer(DotGlyph, ".", DashGlyph, "-")
	toVisual    = strings.NewReplacer(".", DotGlyph, "-", DashGlyph)
)

// NormalizeSymbols maps visual glyphs to their ASCII form and trims surrounding space.
func NormalizeSymbols(s string) string {
	return strings.TrimSpace(toCanonical.Replace(s))
}

// ToVisual renders a canonical sequence with display glyphs.
func ToVisual(s string) string {
	return toVisual.Replace(s)
}

// Codec resolves sequences and messages against a Table.
// Lookup misses are expected during incremental input and are reported as ok=false.
type Codec struct {
	table *Table
}

// NewCodec returns a codec over t. A nil table selects the ITU table.
func NewCodec(t *Table) *Codec {
	if t == nil {
		t = ITU()
	}
	return &Codec{table: t}
}

// Table returns the underlying symbol table.
func (c *Codec) Table() *Table {
	return c.table
}

// SequenceToCharacter resolves a single character's sequence.
func (c *Codec) SequenceToCharacter(seq string) (rune, bool) {
	code := NormalizeSymbols(seq)
	if code == "" {
		return 0, false
	}
	r, err := c.table.Decode(code)
	if err != nil {
		return 0, false
	}
	return r, true
}

// CharacterToSequence encodes s, which must be exactly one character.
func (c *Codec) CharacterToSequence(s string) (string, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(s)
	code, err := c.table.Encode(unicode.ToUpper(r))
	if err != nil {
		return "", false
	}
	return code, true
}

// IsValid reports whether seq resolves to a character.
func (c *Codec) IsValid(seq string) bool {
	_, ok := c.SequenceToCharacter(seq)
	return ok
}

// DecodeMessage translates Morse text. Characters are separated by one space and
// words by three; unknown groups become '?'.
func (c *Codec) DecodeMessage(text string) string {
	if text == "" {
		return ""
	}
	words := strings.Split(text, WordSeparator)
	decoded := make([]string, len(words))
	for i, word := range words {
		var b strings.Builder
		for _, group := range strings.Split(word, CharSeparator) {
			if r, ok := c.SequenceToCharacter(group); ok {
				b.WriteRune(r)
			} else {
				b.WriteRune(Placeholder)
			}
		}
		decoded[i] = b.String()
	}
	return strings.Join(decoded, " ")
}

// EncodeMessage translates plain text split on single spaces into Morse text.
func (c *Codec) EncodeMessage(text string) string {
	if text == "" {
		return ""
	}
	words := strings.Split(text, " ")
	encoded := make([]string, len(words))
	for i, word := range words {
		codes := make([]string, 0, len(word))
		for _, r := range word {
			if code, ok := c.CharacterToSequence(string(r)); ok {
				codes = append(codes, code)
			} else {
				codes = append(codes, string(Placeholder))
			}
		}
		encoded[i] = strings.Join(codes, CharSeparator)
	}
	return strings.Join(encoded, WordSeparator)
}
