package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/morse"
)

func newTestModel(t *testing.T, toneKey bool) (*Model, *keyer.ManualClock) {
	t.Helper()
	session, err := keyer.NewSession(keyer.DefaultConfig(), morse.NewCodec(nil))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	clock := &keyer.ManualClock{}
	return NewModel(session, Options{Clock: clock, ToneKey: toneKey}), clock
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

// lineWith returns the first view line containing label.
func lineWith(view, label string) string {
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, label) {
			return line
		}
	}
	return ""
}

func TestModel_ManualKeys(t *testing.T) {
	m, _ := newTestModel(t, false)

	send(m, runes("."), runes("-"))
	if got := m.Snapshot().Pending; got != ".-" {
		t.Fatalf("Pending = %q, want %q", got, ".-")
	}
	if got := m.Snapshot().Character; got != 'A' {
		t.Errorf("Character = %q, want 'A'", got)
	}

	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.Snapshot().Message; got != "A" {
		t.Errorf("Message = %q, want %q", got, "A")
	}
	if got := m.Snapshot().Pending; got != "" {
		t.Errorf("Pending = %q, want empty", got)
	}
}

func TestModel_ManualPauseSeparatesWords(t *testing.T) {
	tests := []struct {
		name        string
		idle        time.Duration
		next        string
		wantMessage string
		wantPending string
	}{
		{"dot after pause", 1200 * time.Millisecond, ".", "E ", "."},
		{"dash after pause", 1200 * time.Millisecond, "-", "E ", "-"},
		{"dot within pause", 900 * time.Millisecond, ".", "", ".."},
		{"dash within pause", 900 * time.Millisecond, "-", "", ".-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestModel(t, false)

			send(m, runes("."))
			clock.Advance(tt.idle)
			send(m, runes(tt.next))

			snap := m.Snapshot()
			if snap.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", snap.Message, tt.wantMessage)
			}
			if snap.Pending != tt.wantPending {
				t.Errorf("Pending = %q, want %q", snap.Pending, tt.wantPending)
			}
		})
	}
}

func TestModel_ManualPauseAfterDash(t *testing.T) {
	m, clock := newTestModel(t, false)

	send(m, runes("-"))
	clock.Advance(1200 * time.Millisecond)
	send(m, runes("."))

	snap := m.Snapshot()
	if snap.Message != "T " {
		t.Errorf("Message = %q, want %q", snap.Message, "T ")
	}
	if snap.Pending != "." {
		t.Errorf("Pending = %q, want %q", snap.Pending, ".")
	}
}

func TestModel_Undo(t *testing.T) {
	m, _ := newTestModel(t, false)

	send(m, runes("."), runes("-"), tea.KeyMsg{Type: tea.KeyBackspace})
	if got := m.Snapshot().Pending; got != "." {
		t.Errorf("Pending after backspace = %q, want %q", got, ".")
	}

	send(m, runes("u"))
	if got := m.Snapshot().Pending; got != "" {
		t.Errorf("Pending after u = %q, want empty", got)
	}
}

func TestModel_UndoNotice(t *testing.T) {
	m, _ := newTestModel(t, false)

	cmd := send(m, runes("u"))
	if cmd == nil {
		t.Fatal("undo on empty history should schedule the notice expiry")
	}
	if !strings.Contains(m.View(), "Nothing to undo") {
		t.Errorf("View() missing undo notice:\n%s", m.View())
	}

	send(m, noticeExpiredMsg{id: m.noticeID})
	if strings.Contains(m.View(), "Nothing to undo") {
		t.Error("notice still shown after expiry")
	}
}

func TestModel_StaleNoticeExpiryIgnored(t *testing.T) {
	m, _ := newTestModel(t, false)

	send(m, runes("u"))
	stale := m.noticeID
	send(m, runes("c"))

	send(m, noticeExpiredMsg{id: stale})
	if !strings.Contains(m.View(), "Already empty") {
		t.Errorf("newer notice cleared by stale expiry:\n%s", m.View())
	}
}

func TestModel_Clear(t *testing.T) {
	m, _ := newTestModel(t, false)

	send(m, runes("."), tea.KeyMsg{Type: tea.KeyEnter}, runes("-"), runes("c"))

	snap := m.Snapshot()
	if snap.Message != "" || snap.Pending != "" || snap.History != 0 {
		t.Errorf("snapshot after clear = %+v, want empty", snap)
	}
	if m.notice != "" {
		t.Errorf("notice = %q, want none after a real clear", m.notice)
	}
}

func TestModel_ToneEdges(t *testing.T) {
	m, _ := newTestModel(t, true)

	send(m, EdgeMsg{Down: true, At: 0})
	if m.Snapshot().State != keyer.Pressed {
		t.Fatalf("State = %v, want pressed", m.Snapshot().State)
	}
	if !strings.Contains(m.View(), "key down") {
		t.Errorf("View() missing key state:\n%s", m.View())
	}

	send(m, EdgeMsg{Down: false, At: 700 * time.Millisecond})
	if got := m.Snapshot().Pending; got != "-" {
		t.Errorf("Pending = %q, want %q", got, "-")
	}

	// A duplicate release is rejected and leaves the state alone.
	send(m, EdgeMsg{Down: false, At: 800 * time.Millisecond})
	if got := m.Snapshot().Pending; got != "-" {
		t.Errorf("Pending after rejected edge = %q, want %q", got, "-")
	}
}

func TestModel_View(t *testing.T) {
	m, _ := newTestModel(t, false)

	view := m.View()
	if !strings.Contains(view, EmptyMessage) {
		t.Errorf("empty View() missing placeholder:\n%s", view)
	}
	if strings.Contains(view, "key up") {
		t.Errorf("View() without tone key shows key state:\n%s", view)
	}

	send(m, runes("."), runes("-"))
	view = m.View()
	if !strings.Contains(view, morse.DotGlyph+morse.DashGlyph) {
		t.Errorf("View() missing visual sequence:\n%s", view)
	}
	if line := lineWith(view, "Character"); !strings.Contains(line, "A") {
		t.Errorf("character line = %q, want A", line)
	}
}

func TestModel_ViewInvalidMarker(t *testing.T) {
	m, _ := newTestModel(t, false)

	for range 8 {
		send(m, runes("."))
	}
	if !m.Snapshot().Invalid {
		t.Fatal("eight dots should not resolve")
	}
	if line := lineWith(m.View(), "Character"); !strings.Contains(line, "?") {
		t.Errorf("character line = %q, want invalid marker", line)
	}
}

func TestModel_Quit(t *testing.T) {
	tests := []tea.KeyMsg{
		runes("q"),
		{Type: tea.KeyCtrlC},
	}

	for _, msg := range tests {
		t.Run(msg.String(), func(t *testing.T) {
			m, _ := newTestModel(t, false)
			cmd := send(m, msg)
			if cmd == nil {
				t.Fatal("quit key returned no command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Errorf("quit key command = %T, want tea.QuitMsg", cmd())
			}
		})
	}
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t, false)

	if strings.Contains(m.View(), "clear") {
		t.Errorf("short help should not list clear:\n%s", m.View())
	}
	send(m, runes("?"))
	if !strings.Contains(m.View(), "clear") {
		t.Errorf("full help missing clear:\n%s", m.View())
	}
}

func TestModel_LongMessageKeepsTail(t *testing.T) {
	m, _ := newTestModel(t, false)
	send(m, tea.WindowSizeMsg{Width: 20, Height: 10})

	for range 30 {
		send(m, runes("."), tea.KeyMsg{Type: tea.KeyEnter})
	}
	if got := len([]rune(m.Snapshot().Message)); got != 30 {
		t.Fatalf("len(Message) = %d, want 30", got)
	}
	if !strings.Contains(m.View(), "…") {
		t.Errorf("View() should elide the head of a long message:\n%s", m.View())
	}
}
