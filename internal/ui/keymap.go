package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the keyer screen.
type KeyMap struct {
	Dot      key.Binding
	Dash     key.Binding
	Separate key.Binding
	Undo     key.Binding
	Clear    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dot: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "short press"),
		),
		Dash: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "long press"),
		),
		Separate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "end character"),
		),
		Undo: key.NewBinding(
			key.WithKeys("backspace", "u"),
			key.WithHelp("⌫/u", "undo"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dot, k.Dash, k.Separate, k.Undo, k.Help, k.Quit}
}

// FullHelp returns all bindings grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dot, k.Dash, k.Separate},
		{k.Undo, k.Clear},
		{k.Help, k.Quit},
	}
}
