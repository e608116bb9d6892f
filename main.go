// Package main provides the entry point for mmusim.
// mmusim is a functional multi-level cache hierarchy simulator.
//
// For the full CLI, use: go run ./cmd/mmusim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mmusim - Cache Hierarchy Simulator")
	fmt.Println("")
	fmt.Println("Usage: mmusim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      Replay access traces")
	fmt.Println("  bench    Run the synthetic workloads")
	fmt.Println("  serve    Serve the cache state over HTTP")
	fmt.Println("  config   Create, show and check configuration files")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mmusim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mmusim' instead.")
	}
}
