package cmd

import (
	"fmt"
	"io"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/morse"
	"github.com/ColonelBlimp/cwkeyer/internal/script"
	"github.com/ColonelBlimp/cwkeyer/internal/ui"
	"github.com/spf13/cobra"
)

func newReplayCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a keying script",
		Long: `Replay a YAML keying script against the configured thresholds and print the
resulting message. Steps are press, gap, wait, down, up, separate, undo and
clear; press and gap take a duration in ms.`,
		Example: `  cwkeyer replay sos.yaml --verbose`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}
			return runReplay(a, s, cmd.OutOrStdout(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the state after every step")
	return cmd
}

func runReplay(a *app, s *script.Script, out io.Writer, verbose bool) error {
	session, err := keyer.NewSession(a.settings.Keyer(), morse.NewCodec(nil))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.SetLogger(a.logger)

	a.logger.Info("replaying script", "name", s.Name, "steps", len(s.Steps))
	results, runErr := script.Run(s, session, &keyer.ManualClock{})

	if verbose {
		for _, r := range results {
			line := fmt.Sprintf("%3d  %-14s %7dms  %s", r.Index+1, r.Step, r.At.Milliseconds(), ui.RenderPlain(r.Snapshot))
			if r.Notice != nil {
				line += "  (" + r.Notice.Error() + ")"
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return runErr
	}

	_, err = fmt.Fprintln(out, ui.RenderPlain(session.Snapshot()))
	return err
}
