package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mmusim/benchmarks"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the synthetic workloads and report per-unit statistics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		hc := benchmarks.DefaultConfig()
		hc.Hierarchy = c
		hc.Seed = c.Seed
		hc.Output = cmd.OutOrStdout()
		hc.Accesses, _ = cmd.Flags().GetInt("accesses")
		hc.Footprint, _ = cmd.Flags().GetUint64("footprint")
		hc.Verbose, _ = cmd.Flags().GetBool("verbose")

		h := benchmarks.NewHarness(hc)

		core, _ := cmd.Flags().GetBool("core")
		if core {
			h.AddWorkloads(benchmarks.GetCoreWorkloads())
		} else {
			h.AddWorkloads(benchmarks.GetWorkloads())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := h.RunAll(ctx)
		if err != nil {
			return err
		}

		asCSV, _ := cmd.Flags().GetBool("csv")
		asJSON, _ := cmd.Flags().GetBool("json")

		switch {
		case asJSON:
			return h.PrintJSON(results)
		case asCSV:
			h.PrintCSV(results)
		default:
			h.PrintResults(results)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)

	d := benchmarks.DefaultConfig()

	benchCmd.Flags().Int("accesses", d.Accesses, "Approximate accesses per workload")
	benchCmd.Flags().Uint64("footprint", d.Footprint, "Bytes touched by each workload")
	benchCmd.Flags().Bool("core", false, "Run only the core workloads")
	benchCmd.Flags().Bool("csv", false, "Output results in CSV format")
	benchCmd.Flags().Bool("json", false, "Output results in JSON format")
	benchCmd.Flags().BoolP("verbose", "v", false, "Report each workload as it finishes")
}
