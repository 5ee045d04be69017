package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/dsp"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/morse"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
	"github.com/ColonelBlimp/cwkeyer/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// edgeBuffer bounds the edges queued between the audio thread and the session.
const edgeBuffer = 64

var errNeedTerminal = errors.New("listen without --audio needs a terminal")

func newListenCmd(a *app) *cobra.Command {
	var useAudio bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Key Morse interactively",
		Long: `Open the keyer screen. Press . for a short press and - for a long press,
enter ends a character, backspace undoes and c clears.

With --audio a keyed tone on the capture device is the key: tone on is key
down, tone off is key up. When stdout is not a terminal the decoded state is
printed line by line instead.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{tuiAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout(), useAudio)
		},
	}
	cmd.Flags().BoolVar(&useAudio, "audio", false, "use a keyed audio tone as the key")
	return cmd
}

func runListen(ctx context.Context, a *app, in io.Reader, out io.Writer, useAudio bool) error {
	session, err := keyer.NewSession(a.settings.Keyer(), morse.NewCodec(nil))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.SetLogger(a.logger)
	clock := keyer.NewMonotonicClock()

	// Stops the tone key when the UI quits on its own.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !isTerminal(out) {
		if !useAudio {
			return errNeedTerminal
		}
		return listenPlain(ctx, a, session, clock, out)
	}

	model := ui.NewModel(session, ui.Options{Clock: clock, ToneKey: useAudio, Logger: a.logger})
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())

	if useAudio {
		edges, closeKey, err := startToneKey(ctx, a, clock)
		if err != nil {
			return err
		}
		defer closeKey()
		go func() {
			defer recovery.HandlePanicFunc(func() { _ = program.ReleaseTerminal() })
			for edge := range edges {
				program.Send(ui.EdgeMsg{Down: edge.Down, At: edge.At})
			}
		}()
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	a.logger.Info("session ended", "message", session.Snapshot().Message)
	return nil
}

// listenPlain applies tone edges directly and prints each changed state.
func listenPlain(ctx context.Context, a *app, session *keyer.Session, clock keyer.Clock, out io.Writer) error {
	var last string
	session.SetCallback(func(snap keyer.Snapshot) {
		line := ui.RenderPlain(snap)
		if line == last {
			return
		}
		last = line
		_, _ = fmt.Fprintln(out, line)
	})

	edges, closeKey, err := startToneKey(ctx, a, clock)
	if err != nil {
		return err
	}
	defer closeKey()

	for edge := range edges {
		applyEdge(session, edge, a.logger)
	}

	// Commit whatever is pending so the last character is not lost.
	_, _ = session.SeparateCharacter()
	return nil
}

func applyEdge(session *keyer.Session, edge dsp.Edge, logger *slog.Logger) {
	var err error
	if edge.Down {
		_, err = session.Down(edge.At)
	} else {
		_, err = session.Up(edge.At)
	}
	if err != nil {
		logger.Debug("tone edge rejected", "down", edge.Down, "at", edge.At, "error", err)
	}
}

// startToneKey starts capture and detection. The returned channel is closed
// once ctx is done and capture has stopped.
func startToneKey(ctx context.Context, a *app, clock keyer.Clock) (<-chan dsp.Edge, func(), error) {
	s := a.settings

	goertzel, err := dsp.NewGoertzel(s.Goertzel())
	if err != nil {
		return nil, nil, fmt.Errorf("create goertzel: %w", err)
	}
	detector, err := dsp.NewKeyDetector(s.Detector(), goertzel, clock)
	if err != nil {
		return nil, nil, fmt.Errorf("create key detector: %w", err)
	}

	capture := audio.New(s.Audio())
	if err := capture.Init(); err != nil {
		return nil, nil, fmt.Errorf("audio: %w", err)
	}

	edges := make(chan dsp.Edge, edgeBuffer)
	queue := make(chan dsp.Edge, edgeBuffer)
	detector.SetCallback(func(edge dsp.Edge) {
		select {
		case queue <- edge:
		default:
			a.logger.Warn("edge dropped, session is falling behind", "down", edge.Down, "at", edge.At)
		}
	})
	capture.SetCallback(detector.Process)

	if err := capture.Start(ctx); err != nil {
		_ = capture.Close()
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	a.logger.Info("tone key started",
		"frequency", s.ToneFrequency,
		"sample_rate", s.SampleRate,
		"device", s.DeviceIndex)

	go func() {
		defer recovery.HandlePanicFunc(nil)
		defer close(edges)
		for {
			select {
			case <-ctx.Done():
				return
			case edge := <-queue:
				a.logger.Debug("tone edge", "down", edge.Down, "at", edge.At, "magnitude", edge.Magnitude)
				select {
				case edges <- edge:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	closeKey := func() {
		_ = capture.Close()
	}
	return edges, closeKey, nil
}
