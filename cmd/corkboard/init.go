package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corkboard-dev/corkboard/internal/config"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default corkboard.json",
		Long: `Write a default corkboard.json to the working directory.

The generated file carries every tunable with its default value, so
a deployment only has to edit what it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(config.ConfigFileName); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.ConfigFileName)
			}
			if err := config.Default().Save(); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", config.ConfigFileName)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}
