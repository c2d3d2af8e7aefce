// Package cmds holds the carechat cobra commands.
package cmds

import (
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/config"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App carries the state shared by every command once flags are parsed.
type App struct {
	Viper    *viper.Viper
	Settings *config.Settings
}

// NewApp reads settings from the global viper instance clay.InitViper sets up.
func NewApp() *App {
	return &App{Viper: viper.GetViper()}
}

// AddPersistentFlags registers the flags every command understands. The
// logging flags and --config come from clay.InitViper.
func (a *App) AddPersistentFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("env-file", ".env", "Environment file to load before reading CARECHAT_* variables")
	fs.String("endpoint", config.DefaultEndpoint, "Chat backend endpoint")
	fs.String("transport", transport.TypeHTTP, "Transport to the backend (http, websocket)")
	fs.Duration("timeout", 0, "Give up on a reply after this long (0 waits indefinitely)")
	fs.String("language", "", "Language hint sent with every message")
	fs.Bool("pretty", true, "Render **bold** and line breaks in replies")
}

// Init loads the settings. It is meant to run from the root command's
// PersistentPreRunE, after clay.InitLogger.
func (a *App) Init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	if err := a.Viper.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(a.Viper, configFile); err != nil {
		return err
	}
	s, err := config.Load(a.Viper)
	if err != nil {
		return err
	}
	a.Settings = s
	return nil
}

func (a *App) NewTransport() (transport.Transport, error) {
	if err := a.Settings.Validate(); err != nil {
		return nil, err
	}
	return transport.New(a.Settings.Transport, a.Settings.Endpoint)
}

func (a *App) SessionOptions() []session.Option {
	var opts []session.Option
	if a.Settings.Language != "" {
		opts = append(opts, session.WithLanguage(a.Settings.Language))
	}
	return opts
}

func (a *App) ConversationOptions() []chat.Option {
	var opts []chat.Option
	if a.Settings.Timeout > 0 {
		opts = append(opts, chat.WithExchangeTimeout(a.Settings.Timeout))
	}
	return opts
}

func closeTransport(tr transport.Transport) {
	if c, ok := tr.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
