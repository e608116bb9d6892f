package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mmusim/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mmusim",
	Short: "mmusim simulates multi-level set-associative cache hierarchies.",
	Long: `mmusim simulates multi-level set-associative cache hierarchies ` +
		`with configurable eviction, write, inclusion and coherence policies. ` +
		`It replays access traces, runs synthetic workloads and serves the ` +
		`cache state for inspection.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"Path to hierarchy configuration JSON file (default: built-in)")
	rootCmd.PersistentFlags().StringSlice("env", nil,
		"Additional .env files to load")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig reads the configuration named by --config, or the default one,
// and applies environment overrides.
func loadConfig(cmd *cobra.Command) (*config.HierarchyConfig, config.Env, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env")

	env, err := config.LoadEnv(envFiles...)
	if err != nil {
		return nil, config.Env{}, err
	}

	c := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		c, err = config.Load(path)
		if err != nil {
			return nil, config.Env{}, err
		}
	}

	env.Apply(c)

	if err := c.Validate(); err != nil {
		return nil, config.Env{}, err
	}

	return c, env, nil
}
