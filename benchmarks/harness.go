// Package benchmarks runs synthetic memory workloads through a cache
// hierarchy and reports how each level behaved.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/hierarchy"
	"github.com/sarchlab/mmusim/loader"
	"github.com/sarchlab/mmusim/trace"
)

// LevelResult holds the counters of one unit after a run.
type LevelResult struct {
	Unit              string  `json:"unit"`
	Reads             uint64  `json:"reads"`
	Writes            uint64  `json:"writes"`
	Hits              uint64  `json:"hits"`
	Misses            uint64  `json:"misses"`
	HitRate           float64 `json:"hit_rate"`
	Evictions         uint64  `json:"evictions"`
	Writebacks        uint64  `json:"writebacks"`
	Snoops            uint64  `json:"snoops"`
	BackInvalidations uint64  `json:"back_invalidations"`
}

// BenchmarkResult holds the results of a single workload run.
type BenchmarkResult struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains what the workload stresses
	Description string `json:"description"`

	// Records is the number of trace records replayed
	Records int `json:"records"`

	// Levels lists every unit, top to bottom
	Levels []LevelResult `json:"levels"`

	// Coherent is false if any touched line ended in an illegal state
	// combination
	Coherent bool `json:"coherent"`

	// MemoryWords is the number of initialized memory words after the final
	// flush
	MemoryWords int `json:"memory_words"`

	// Error is set when the replay failed
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the workload
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Hierarchy is the hierarchy every workload runs on
	Hierarchy *config.HierarchyConfig

	// Accesses is the approximate number of accesses per workload
	Accesses int

	// Footprint is the number of bytes the workloads touch. Memory is
	// preloaded with zeros over this range.
	Footprint uint64

	// Seed feeds the random workloads
	Seed uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints a line per workload while running
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Hierarchy: config.Default(),
		Accesses:  20000,
		Footprint: 256 * 1024,
		Seed:      1,
		Output:    os.Stdout,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	if config.Hierarchy == nil {
		config.Hierarchy = DefaultConfig().Hierarchy
	}

	return &Harness{config: config}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(ws []Workload) {
	h.workloads = append(h.workloads, ws...)
}

// RunAll executes all workloads and returns results.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.workloads))

	for _, w := range h.workloads {
		r, err := h.runWorkload(ctx, w)
		if err != nil {
			return results, err
		}

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d records in %v\n",
				r.Name, r.Records, r.WallTime)
		}

		results = append(results, r)
	}

	return results, nil
}

// Params returns the workload parameters derived from the configuration.
func (h *Harness) Params() Params {
	return Params{
		LineBytes: h.config.Hierarchy.LineBytes,
		Contexts:  h.config.Hierarchy.Contexts,
		Footprint: h.config.Footprint,
		Accesses:  h.config.Accesses,
	}
}

// runWorkload executes a single workload on a fresh hierarchy.
func (h *Harness) runWorkload(ctx context.Context, w Workload) (BenchmarkResult, error) {
	s, err := hierarchy.New(h.config.Hierarchy)
	if err != nil {
		return BenchmarkResult{}, err
	}

	zeros := &loader.Image{Segments: []loader.Segment{{MemSize: h.config.Footprint}}}
	if err := zeros.Preload(s.Memory()); err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to preload memory: %w", err)
	}

	rng := rand.New(rand.NewPCG(h.config.Seed, hashName(w.Name)))
	recs := w.Generate(h.Params(), rng)

	result := BenchmarkResult{
		Name:        w.Name,
		Description: w.Description,
		Records:     len(recs),
		Coherent:    true,
	}

	start := time.Now()
	_, err = trace.Replay(ctx, s, recs, nil)
	result.WallTime = time.Since(start)

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if err != nil {
		result.Error = err.Error()
	}

	result.Coherent = coherent(s, recs)

	for _, st := range s.Stats() {
		result.Levels = append(result.Levels, LevelResult{
			Unit:              st.Unit,
			Reads:             st.Reads,
			Writes:            st.Writes,
			Hits:              st.Hits,
			Misses:            st.Misses,
			HitRate:           st.HitRate(),
			Evictions:         st.Evictions,
			Writebacks:        st.Writebacks,
			Snoops:            st.Snoops,
			BackInvalidations: st.BackInvalidations,
		})
	}

	s.Flush()
	result.MemoryWords = s.Memory().Footprint()

	return result, nil
}

func coherent(s *hierarchy.Session, recs []trace.Record) bool {
	seen := make(map[uint64]bool)

	for _, r := range recs {
		if r.Op == trace.OpContext || r.Op == trace.OpTemp {
			continue
		}

		line := s.Align(r.Addr)
		if seen[line] {
			continue
		}

		seen[line] = true

		if ok, err := s.CheckCoherent(line); err != nil || !ok {
			return false
		}
	}

	return true
}

func hashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))

	return h.Sum64()
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Cache Hierarchy Workload Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Records:     %d\n", r.Records)
		_, _ = fmt.Fprintf(h.config.Output, "  Coherent:    %v\n", r.Coherent)

		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error:       %s\n", r.Error)
		}

		for _, l := range r.Levels {
			_, _ = fmt.Fprintf(h.config.Output, "  --- %s ---\n", l.Unit)
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:        %d\n", l.Hits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses:      %d\n", l.Misses)
			_, _ = fmt.Fprintf(h.config.Output, "  Hit Rate:    %.1f%%\n", l.HitRate*100)
			_, _ = fmt.Fprintf(h.config.Output, "  Evictions:   %d\n", l.Evictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Write-backs: %d\n", l.Writebacks)

			if l.Snoops > 0 {
				_, _ = fmt.Fprintf(h.config.Output, "  Snoops:      %d\n", l.Snoops)
			}

			if l.BackInvalidations > 0 {
				_, _ = fmt.Fprintf(h.config.Output, "  Back-invalidations: %d\n", l.BackInvalidations)
			}
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs one row per workload and unit.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,unit,reads,writes,hits,misses,hit_rate,evictions,writebacks,snoops,back_invalidations,coherent")

	for _, r := range results {
		for _, l := range r.Levels {
			_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%d,%d,%.4f,%d,%d,%d,%d,%v\n",
				r.Name,
				l.Unit,
				l.Reads,
				l.Writes,
				l.Hits,
				l.Misses,
				l.HitRate,
				l.Evictions,
				l.Writebacks,
				l.Snoops,
				l.BackInvalidations,
				r.Coherent,
			)
		}
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual workload results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Hierarchy is the configuration the workloads ran on
	Hierarchy *config.HierarchyConfig `json:"hierarchy"`

	Accesses  int    `json:"accesses"`
	Footprint uint64 `json:"footprint"`
	Seed      uint64 `json:"seed"`
}

// ReportSummary contains aggregate statistics across all workloads.
type ReportSummary struct {
	// TotalWorkloads is the number of workloads run
	TotalWorkloads int `json:"total_workloads"`

	// TotalRecords is the sum of all replayed records
	TotalRecords int `json:"total_records"`

	// AllCoherent is true if every workload ended coherent
	AllCoherent bool `json:"all_coherent"`

	// TotalWallTime is the total wall clock time for all workloads
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{
		TotalWorkloads: len(results),
		AllCoherent:    true,
	}

	for _, r := range results {
		summary.TotalRecords += r.Records
		summary.TotalWallTime += r.WallTime
		summary.AllCoherent = summary.AllCoherent && r.Coherent
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Hierarchy: h.config.Hierarchy,
			Accesses:  h.config.Accesses,
			Footprint: h.config.Footprint,
			Seed:      h.config.Seed,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}
