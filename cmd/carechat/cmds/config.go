package cmds

import (
	"github.com/spf13/cobra"
)

func NewConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect carechat configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.Settings.YAML()
			if err != nil {
				return err
			}
			if f := app.Viper.ConfigFileUsed(); f != "" {
				cmd.Printf("# loaded from %s\n", f)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(show)
	return cmd
}
