package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mmusim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show and check hierarchy configuration files.",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "mmusim.json"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate path...",
	Short: "Check configuration files.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0

		for _, p := range args {
			c, err := config.Load(p)
			if err == nil {
				err = c.Validate()
			}

			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
				failed++

				continue
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", p)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}
