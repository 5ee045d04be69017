// Package ui provides the Bubble Tea keyer screen.
package ui

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/morse"
)

// Notice durations.
const (
	UndoNoticeDuration  = 2 * time.Second
	ClearNoticeDuration = 1500 * time.Millisecond
)

// EdgeMsg carries a key transition from the tone key.
type EdgeMsg struct {
	Down bool
	At   time.Duration
}

type noticeExpiredMsg struct{ id int }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")).Width(11)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	charStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	keyDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	keyUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// Options configures a Model.
type Options struct {
	// Clock stamps the synthesized presses of the manual keys
	Clock keyer.Clock
	// ToneKey is true when the audio tone key feeds EdgeMsg values
	ToneKey bool
	Logger  *slog.Logger
}

// Model implements the Bubble Tea keyer UI.
type Model struct {
	session *keyer.Session
	clock   keyer.Clock
	keys    KeyMap
	help    help.Model
	logger  *slog.Logger
	toneKey bool
	// shift moves manual presses onto a timeline where each keystroke starts
	// its press, so idle time is measured from keystroke to keystroke.
	shift time.Duration

	snap     keyer.Snapshot
	notice   string
	noticeID int
	width    int
}

// NewModel constructs a keyer UI model over session.
func NewModel(session *keyer.Session, opts Options) *Model {
	clock := opts.Clock
	if clock == nil {
		clock = keyer.NewMonotonicClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model{
		session: session,
		clock:   clock,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		logger:  logger,
		toneKey: opts.ToneKey,
		snap:    session.Snapshot(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Snapshot returns the last snapshot drawn.
func (m *Model) Snapshot() keyer.Snapshot {
	return m.snap
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case EdgeMsg:
		m.handleEdge(msg)
		return m, nil
	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Dot):
		m.press(m.dotHold())
	case key.Matches(msg, m.keys.Dash):
		m.press(m.dashHold())
	case key.Matches(msg, m.keys.Separate):
		m.snap, _ = m.session.SeparateCharacter()
	case key.Matches(msg, m.keys.Undo):
		snap, err := m.session.Undo()
		m.snap = snap
		if errors.Is(err, keyer.ErrNothingToUndo) {
			return m, m.showNotice("Nothing to undo", UndoNoticeDuration)
		}
	case key.Matches(msg, m.keys.Clear):
		snap, err := m.session.Clear()
		m.snap = snap
		if errors.Is(err, keyer.ErrAlreadyEmpty) {
			return m, m.showNotice("Already empty", ClearNoticeDuration)
		}
		m.notice = ""
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// dotHold and dashHold are the hold times synthesized for the manual keys.
func (m *Model) dotHold() time.Duration {
	return m.session.Config().DotThreshold / 4
}

func (m *Model) dashHold() time.Duration {
	return m.session.Config().DotThreshold
}

// press records a press of length hold that starts at the keystroke.
func (m *Model) press(hold time.Duration) {
	start := m.clock.Now() + m.shift
	snap, err := m.session.Press(start, start+hold)
	m.snap = snap
	if err != nil {
		m.logger.Debug("manual press rejected", "error", err)
		return
	}
	m.shift += hold
}

func (m *Model) handleEdge(e EdgeMsg) {
	var (
		snap keyer.Snapshot
		err  error
	)
	if e.Down {
		snap, err = m.session.Down(e.At)
	} else {
		snap, err = m.session.Up(e.At)
	}
	m.snap = snap
	if err != nil {
		m.logger.Debug("tone edge rejected", "down", e.Down, "at", e.At, "error", err)
	}
}

func (m *Model) showNotice(text string, d time.Duration) tea.Cmd {
	m.noticeID++
	m.notice = text
	id := m.noticeID
	return tea.Tick(d, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("CW Keyer"))
	if m.toneKey {
		b.WriteString("  ")
		b.WriteString(m.renderKeyState())
	}
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Sequence"))
	b.WriteString(pendingStyle.Render(morse.ToVisual(m.snap.Pending)))
	b.WriteByte('\n')

	b.WriteString(labelStyle.Render("Character"))
	b.WriteString(m.renderCharacter())
	b.WriteByte('\n')

	b.WriteString(labelStyle.Render("Message"))
	b.WriteString(m.renderMessage())
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteByte('\n')
	return b.String()
}

func (m *Model) renderKeyState() string {
	if m.snap.State == keyer.Pressed {
		return keyDownStyle.Render("● key down")
	}
	return keyUpStyle.Render("○ key up")
}

func (m *Model) renderCharacter() string {
	label := CharacterLabel(m.snap)
	if m.snap.Invalid {
		return invalidStyle.Render(label)
	}
	return charStyle.Render(label)
}

func (m *Model) renderMessage() string {
	if m.snap.Message == "" {
		return emptyStyle.Render(EmptyMessage)
	}
	width := 0
	if m.width > 0 {
		width = m.width - labelStyle.GetWidth()
	}
	return messageStyle.Render(tail(m.snap.Message, width))
}
