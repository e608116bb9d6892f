// Command benchmark runs the mmusim workload harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results in JSON format
//	-config     Hierarchy configuration JSON file (default: built-in)
//	-core       Run only the core workloads
//
// Example:
//
//	# Run all workloads with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// Comparing runs across configurations shows how eviction, inclusion and
// coherence choices change hit rates and traffic between levels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/mmusim/benchmarks"
	"github.com/sarchlab/mmusim/config"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	configPath := flag.String("config", "", "Hierarchy configuration JSON file")
	coreOnly := flag.Bool("core", false, "Run only the core workloads")
	accesses := flag.Int("accesses", benchmarks.DefaultConfig().Accesses,
		"Approximate accesses per workload")
	flag.Parse()

	// Configure harness
	cfg := benchmarks.DefaultConfig()
	cfg.Accesses = *accesses
	cfg.Output = os.Stdout

	if *configPath != "" {
		h, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg.Hierarchy = h
		cfg.Seed = h.Seed
	}

	// Create harness and add workloads
	harness := benchmarks.NewHarness(cfg)
	if *coreOnly {
		harness.AddWorkloads(benchmarks.GetCoreWorkloads())
	} else {
		harness.AddWorkloads(benchmarks.GetWorkloads())
	}

	// Print configuration
	if !*csvOutput && !*jsonOutput {
		fmt.Println("mmusim Workload Harness")
		fmt.Println("=======================")
		for _, l := range cfg.Hierarchy.Levels {
			fmt.Printf("%s: %d sets x %d ways, %s/%s/%s/%s, %d instance(s)\n",
				l.Name, l.Sets, l.Associativity,
				l.Eviction, l.Write, l.Inclusion, l.Coherence, l.Instances)
		}
		fmt.Println("")
	}

	// Run workloads
	results, err := harness.RunAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}
}
