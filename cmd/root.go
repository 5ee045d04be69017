// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
	applog "github.com/ColonelBlimp/cwkeyer/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// tuiAnnotation marks commands that take over the terminal. Console logging is
// disabled for them when stdout is a terminal.
const tuiAnnotation = "tui"

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configFile string
	settings   *config.Settings
	logger     *slog.Logger
	closers    []io.Closer
}

// flagBindings maps persistent flags to config keys.
var flagBindings = map[string]string{
	"dot-threshold":   "dot_threshold_ms",
	"pause-threshold": "pause_threshold_ms",
	"device":          "device_index",
	"frequency":       "tone_frequency",
	"log-level":       "log_level",
	"log-file":        "log_file",
	"debug":           "debug",
}

func Execute() {
	a := &app{}
	if err := a.run(newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes root and closes the log sinks whether or not the command failed.
func (a *app) run(root *cobra.Command) error {
	defer a.close()
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cwkeyer",
		Short: "Single-key Morse code keyer",
		Long: `A single-key Morse keyer. Press durations become dots and dashes, pauses
separate characters and words, and mistakes can be undone. The key is the
keyboard or a keyed audio tone.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	// Global flags (override config file)
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default ./config.yaml or ~/.config/cwkeyer/config.yaml)")
	flags.Int("dot-threshold", 500, "presses shorter than this many ms are dots")
	flags.Int("pause-threshold", 1000, "idle ms before the next press that separates words")
	flags.IntP("device", "d", -1, "audio device index (-1 for default)")
	flags.Float64P("frequency", "f", 600, "key tone frequency in Hz")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file")
	flags.BoolP("debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(newEncodeCmd(a))
	rootCmd.AddCommand(newDecodeCmd(a))
	rootCmd.AddCommand(newTableCmd(a))
	rootCmd.AddCommand(newReplayCmd(a))
	rootCmd.AddCommand(newListenCmd(a))
	rootCmd.AddCommand(newDevicesCmd(a))

	return rootCmd
}

// setup binds flags, loads and validates config and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	for name, key := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if err := config.Init(a.configFile); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	settings, err := config.Get()
	if err != nil {
		return err
	}
	a.settings = settings

	console := !(cmd.Annotations[tuiAnnotation] == "true" && isTerminal(cmd.OutOrStdout()))
	logger, closers, err := applog.Setup(applog.Options{
		Level:   settings.EffectiveLogLevel(),
		File:    settings.LogFile,
		Console: console,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	a.logger = logger
	a.closers = closers
	slog.SetDefault(logger)

	logger.Debug("config loaded", "file", viper.ConfigFileUsed(), "command", cmd.Name())
	return nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
