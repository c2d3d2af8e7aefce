package cmds

import (
	"sync"
	"time"

	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/go-go-golems/carechat/pkg/webwidget"
	"github.com/spf13/cobra"
)

func NewServeCommand(app *App) *cobra.Command {
	var (
		title       string
		idleTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Settings.Validate(); err != nil {
				return err
			}

			srv, err := webwidget.NewServer(cmd.Context(), webwidget.Settings{
				Addr:     app.Settings.Addr,
				Title:    title,
				Pretty:   app.Settings.Pretty,
				Language: app.Settings.Language,
				Timeout:  app.Settings.Timeout,

				IdleTimeout: idleTimeout,
			}, transportFactory(app))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&title, "title", "Support chat", "Page title")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 30*time.Minute, "Forget a browser's conversation after this long without requests (0 keeps them)")
	return cmd
}

// transportFactory shares one HTTP transport between widgets. WebSocket
// connections are per user, so each widget dials its own.
func transportFactory(app *App) webwidget.TransportFactory {
	if app.Settings.Transport == transport.TypeWebSocket {
		return app.NewTransport
	}
	var (
		once   sync.Once
		shared transport.Transport
		err    error
	)
	return func() (transport.Transport, error) {
		once.Do(func() {
			shared, err = app.NewTransport()
		})
		return shared, err
	}
}
