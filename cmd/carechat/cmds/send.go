package cmds

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/render"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSendCommand(app *App) *cobra.Command {
	var (
		userID         string
		conversationID string
		showIDs        bool
	)

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := app.NewTransport()
			if err != nil {
				return err
			}
			defer closeTransport(tr)

			opts := append(app.SessionOptions(),
				session.WithUserID(userID),
				session.WithConversationID(conversationID),
			)
			conv := chat.NewConversation(session.New(opts...), tr, app.ConversationOptions()...)

			sent, exchangeErr := conv.Submit(cmd.Context(), strings.Join(args, " "))
			if !sent {
				return errors.New("message is empty")
			}

			st := conv.Snapshot()
			// drop the user's own message, print everything the exchange added
			st.Messages = st.Messages[1:]
			renderer := render.NewTerminalRenderer(render.DefaultStyles(nil), app.Settings.Pretty)
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, renderer.Render(render.Project(st), 0, "")); err != nil {
				return err
			}
			if showIDs {
				fmt.Fprintf(cmd.ErrOrStderr(), "user_id: %s\nconversation_id: %s\n", st.UserID, st.ConversationID)
			}
			return errors.Wrap(exchangeErr, "exchange failed")
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Reuse this user id instead of generating one")
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Continue an existing conversation")
	cmd.Flags().BoolVar(&showIDs, "show-ids", false, "Print the user and conversation ids to stderr")
	return cmd
}
