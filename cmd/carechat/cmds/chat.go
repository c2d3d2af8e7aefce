package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/logging"
	"github.com/go-go-golems/carechat/pkg/render"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/ui"
	"github.com/go-go-golems/carechat/pkg/ui/runtime"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// sendFirst submits message and prints the exchange. The fallback reply of a
// cancelled exchange is still printed.
func sendFirst(ctx context.Context, conv *chat.Conversation, printer *ui.LinePrinter, message string) error {
	if _, err := conv.Submit(ctx, message); err != nil {
		log.Debug().Err(err).Msg("first message answered with fallback")
	}
	return printer.Flush(conv)
}

func NewChatCommand(app *App) *cobra.Command {
	var (
		lineMode bool
		message  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the support assistant in the terminal",
		Long: "Opens the interactive chat widget. When stdin or stdout is not a terminal, " +
			"or with --line-mode, messages are read one per line and replies are printed as they arrive.\n" +
			"With --message, that message is sent first and the reply printed before continuing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr, err := app.NewTransport()
			if err != nil {
				return err
			}
			defer closeTransport(tr)

			conv := chat.NewConversation(session.New(app.SessionOptions()...), tr, app.ConversationOptions()...)
			renderer := render.NewTerminalRenderer(render.DefaultStyles(nil), app.Settings.Pretty)
			printer := ui.NewLinePrinter(cmd.OutOrStdout(), renderer, terminalWidth(os.Stdout))
			interactive := !lineMode && isTerminal(os.Stdin) && isTerminal(os.Stdout)

			if message != "" {
				if err := sendFirst(ctx, conv, printer, message); err != nil || ctx.Err() != nil {
					return err
				}
				if interactive {
					// Stdout might be redirected, so ask on stderr.
					if !isTerminal(os.Stderr) {
						return nil
					}
					ok, err := ui.AskToContinue(os.Stderr, os.Stderr)
					if err != nil || !ok {
						return err
					}
				}
			}

			if !interactive {
				err := printer.Run(ctx, conv, cmd.InOrStdin())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			// keep the log away from the alternate screen
			logging.Quiet(app.Settings.Logging)

			cs, p, err := runtime.NewChatBuilder().
				WithContext(ctx).
				WithConversation(conv).
				WithModelOptions(ui.WithRenderer(renderer)).
				WithProgramOptions(tea.WithAltScreen()).
				BuildProgram()
			if err != nil {
				return err
			}

			log.Info().Str("user_id", conv.Session().UserID()).Msg("starting chat")
			_, err = p.Run()
			cs.Backend.Kill()
			if err == nil || errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return errors.Wrap(err, "chat program")
		},
	}

	cmd.Flags().BoolVar(&lineMode, "line-mode", false, "Read one message per line instead of opening the interactive widget")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send this message first and print the reply")
	return cmd
}
