package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Long:  `List audio capture devices. Use the index with --device or device_index.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			capture := audio.New(a.settings.Audio())
			if err := capture.Init(); err != nil {
				return fmt.Errorf("audio: %w", err)
			}
			defer capture.Close()

			devices, err := capture.Devices()
			if err != nil {
				return fmt.Errorf("audio: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				_, err := fmt.Fprintln(out, "no capture devices found")
				return err
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				if _, err := fmt.Fprintf(out, "%s %2d  %s\n", marker, d.Index, d.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
