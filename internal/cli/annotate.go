package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"tasklist/internal/annotate"
	"tasklist/internal/render"

	"github.com/spf13/cobra"
)

func newAnnotateCmd(app *App) *cobra.Command {
	var styled bool
	var check bool

	cmd := &cobra.Command{
		Use:   "annotate [text]",
		Short: "Split text into plain segments and entities (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := annotateInput(cmd, args)
			if err != nil {
				return writeErr(cmd, err)
			}

			segs := annotate.Annotate(text)
			if check {
				if err := annotate.Validate(text, segs); err != nil {
					return writeErr(cmd, fmt.Errorf("invalid segmentation: %w", err))
				}
			}

			if styled {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), render.ANSI(text))
				return err
			}

			data := map[string]any{
				"text":     text,
				"segments": segs,
				"entities": annotate.Extract(text),
			}
			if check {
				data["valid"] = true
			}
			return writeOut(cmd, app, envelope(nil, data))
		},
	}

	cmd.Flags().BoolVar(&styled, "render", false, "Print the styled text (ANSI) instead of the JSON envelope")
	cmd.Flags().BoolVar(&check, "check", false, "Verify the segments tile the input exactly")

	return cmd
}

// annotateInput takes the argument as-is, or stdin minus one trailing newline.
func annotateInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := string(b)
	if strings.HasSuffix(s, "\r\n") {
		s = strings.TrimSuffix(s, "\r\n")
	} else {
		s = strings.TrimSuffix(s, "\n")
	}
	if s == "" && len(b) == 0 {
		return "", errors.New("no text: pass it as an argument or on stdin")
	}
	return s, nil
}
