package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ColonelBlimp/cwkeyer/internal/morse"
	"github.com/spf13/cobra"
)

func newEncodeCmd(_ *app) *cobra.Command {
	var visual bool
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Translate text to Morse",
		Long: `Translate text to Morse. Characters are separated by one space and words by
three. Characters without a code become '?'. Reads lines from stdin when no
text is given.`,
		Example: `  cwkeyer encode SOS
  echo "hello world" | cwkeyer encode --visual`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := morse.NewCodec(nil)
			return eachLine(cmd, args, func(line string) string {
				out := codec.EncodeMessage(line)
				if visual {
					out = morse.ToVisual(out)
				}
				return out
			})
		},
	}
	cmd.Flags().BoolVar(&visual, "visual", false, "print · and — instead of . and -")
	return cmd
}

func newDecodeCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [morse...]",
		Short: "Translate Morse to text",
		Long: `Translate Morse to text. Separate characters with one space and words with
three; arguments are joined with one space. Both . - and · — are accepted.
Unknown groups become '?'. Reads lines from stdin when no code is given.`,
		Example: `  cwkeyer decode "... --- ..."
  cwkeyer decode ".-" "-..."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := morse.NewCodec(nil)
			return eachLine(cmd, args, func(line string) string {
				return codec.DecodeMessage(strings.TrimSpace(line))
			})
		},
	}
}

// eachLine applies fn to the joined args, or to every stdin line without args.
func eachLine(cmd *cobra.Command, args []string, fn func(string) string) error {
	out := cmd.OutOrStdout()
	if len(args) > 0 {
		_, err := fmt.Fprintln(out, fn(strings.Join(args, " ")))
		return err
	}
	return scanLines(cmd.InOrStdin(), func(line string) error {
		_, err := fmt.Fprintln(out, fn(line))
		return err
	})
}

func scanLines(r io.Reader, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := fn(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
