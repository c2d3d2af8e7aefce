package main

import (
	"github.com/go-go-golems/carechat/cmd/carechat/cmds"
	carechat_doc "github.com/go-go-golems/carechat/cmd/carechat/doc"
	"github.com/go-go-golems/carechat/pkg/config"
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"
)

func newRootCommand() (*cobra.Command, error) {
	app := cmds.NewApp()

	rootCmd := &cobra.Command{
		Use:          "carechat",
		Short:        "carechat is a client for a mental-health support chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// reinitialize the logger because we can now parse --log-level and co
			// from the command line flag
			if err := clay.InitLogger(); err != nil {
				return err
			}
			return app.Init(cmd)
		},
	}
	app.AddPersistentFlags(rootCmd)

	helpSystem := help.NewHelpSystem()
	if err := carechat_doc.AddDocToHelpSystem(helpSystem); err != nil {
		return nil, err
	}
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	if err := clay.InitViper(config.AppName, rootCmd); err != nil {
		return nil, err
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.carechat/config.yaml)")
	}
	if err := clay.InitLogger(); err != nil {
		return nil, err
	}

	rootCmd.AddCommand(
		cmds.NewChatCommand(app),
		cmds.NewSendCommand(app),
		cmds.NewServeCommand(app),
		cmds.NewRenderCommand(),
		cmds.NewConfigCommand(app),
	)
	return rootCmd, nil
}

func main() {
	rootCmd, err := newRootCommand()
	cobra.CheckErr(err)
	cobra.CheckErr(rootCmd.Execute())
}
