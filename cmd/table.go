package cmd

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ColonelBlimp/cwkeyer/internal/morse"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newTableCmd(_ *app) *cobra.Command {
	var (
		all     bool
		columns int
	)
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the Morse code table",
		Long: `Print the Morse code table. Letters and digits are shown by default; --all
adds punctuation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if columns < 1 {
				return fmt.Errorf("columns must be at least 1, got %d", columns)
			}
			entries := tableEntries(morse.ITU(), all)
			_, err := fmt.Fprint(cmd.OutOrStdout(), renderTable(entries, columns))
			return err
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include punctuation")
	cmd.Flags().IntVar(&columns, "columns", 4, "number of columns")
	return cmd
}

// tableEntries returns A-Z then 0-9, followed by the rest in sorted order when all is set.
func tableEntries(t *morse.Table, all bool) []morse.Entry {
	var letters, digits, other []morse.Entry
	for _, r := range t.SupportedCharacters() {
		code, err := t.Encode(r)
		if err != nil {
			continue
		}
		e := morse.Entry{Char: r, Code: code}
		switch {
		case r >= 'A' && r <= 'Z':
			letters = append(letters, e)
		case unicode.IsDigit(r):
			digits = append(digits, e)
		default:
			other = append(other, e)
		}
	}
	entries := append(letters, digits...)
	if all {
		entries = append(entries, other...)
	}
	return entries
}

// renderTable lays entries out row by row in aligned columns.
func renderTable(entries []morse.Entry, columns int) string {
	cells := make([]string, len(entries))
	width := 0
	for i, e := range entries {
		cells[i] = fmt.Sprintf("%c  %s", e.Char, morse.ToVisual(e.Code))
		if w := runewidth.StringWidth(cells[i]); w > width {
			width = w
		}
	}

	var b strings.Builder
	for i, cell := range cells {
		last := i%columns == columns-1 || i == len(cells)-1
		if last {
			b.WriteString(cell)
			b.WriteByte('\n')
			continue
		}
		b.WriteString(runewidth.FillRight(cell, width+3))
	}
	return b.String()
}
