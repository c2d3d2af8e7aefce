package cmds

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/carechat/pkg/markup"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewRenderCommand() *cobra.Command {
	var (
		format     string
		forceColor bool
	)

	cmd := &cobra.Command{
		Use:   "render [TEXT...]",
		Short: "Render reply markup (**bold**, line breaks) as html, ansi or plain text",
		Long:  "Renders the arguments, or stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = strings.TrimSuffix(string(b), "\n")
			}

			var out string
			switch format {
			case "html":
				out = markup.HTML(text)
			case "ansi":
				r := lipgloss.NewRenderer(cmd.OutOrStdout())
				if forceColor {
					r.SetColorProfile(termenv.ANSI)
				}
				out = markup.Terminal(text, r.NewStyle().Bold(true))
			case "plain":
				out = markup.Strip(text)
			default:
				return errors.Errorf("unknown format %q (want html, ansi or plain)", format)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "ansi", "Output format (html, ansi, plain)")
	cmd.Flags().BoolVar(&forceColor, "force-color", false, "Emit ANSI styling even when stdout is not a terminal")
	return cmd
}
