package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cobraCmd.AddCommand(newConfigInitCommand())

	return cobraCmd
}

func newConfigInitCommand() *cobra.Command {
	var output string

	cobraCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := config.WriteScaffold(output)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)

			return nil
		},
	}

	cobraCmd.Flags().StringVarP(&output, "output", "o", "fbpulse.yaml", "destination path")

	return cobraCmd
}
