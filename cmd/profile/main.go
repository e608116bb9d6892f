// Package main provides a profiling wrapper for mmusim to identify performance bottlenecks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/mmusim/benchmarks"
	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/hierarchy"
	"github.com/sarchlab/mmusim/trace"
)

var (
	configPath = flag.String("config", "", "hierarchy configuration JSON file")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	workload   = flag.String("workload", "random", "synthetic workload to run when no trace is given")
	accesses   = flag.Int("accesses", 200000, "accesses of the synthetic workload")
)

func main() {
	flag.Parse()

	c := config.Default()
	if *configPath != "" {
		var err error

		c, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()

	var (
		records int
		err     error
	)

	if flag.NArg() > 0 {
		records, err = runTraces(ctx, c, flag.Args())
	} else {
		records, err = runWorkload(ctx, c)
	}

	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Records replayed: %d\n", records)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if records > 0 {
		fmt.Printf("Records/second: %.0f\n", float64(records)/elapsed.Seconds())
	}
}

// runTraces replays trace files on one hierarchy.
func runTraces(ctx context.Context, c *config.HierarchyConfig, paths []string) (int, error) {
	s, err := hierarchy.New(c)
	if err != nil {
		return 0, err
	}

	total := 0

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return total, err
		}

		recs, err := trace.Parse(f)
		_ = f.Close()

		if err != nil {
			return total, fmt.Errorf("%s: %w", p, err)
		}

		if _, err := trace.Replay(ctx, s, recs, nil); err != nil {
			return total, fmt.Errorf("%s: %w", p, err)
		}

		total += len(recs)
	}

	return total, nil
}

// runWorkload runs one synthetic workload through the benchmark harness.
func runWorkload(ctx context.Context, c *config.HierarchyConfig) (int, error) {
	hc := benchmarks.DefaultConfig()
	hc.Hierarchy = c
	hc.Accesses = *accesses
	hc.Output = io.Discard

	h := benchmarks.NewHarness(hc)

	for _, w := range benchmarks.GetWorkloads() {
		if w.Name == *workload {
			h.AddWorkload(w)
		}
	}

	results, err := h.RunAll(ctx)
	if err != nil {
		return 0, err
	}

	if len(results) == 0 {
		return 0, fmt.Errorf("unknown workload %q", *workload)
	}

	return results[0].Records, nil
}
