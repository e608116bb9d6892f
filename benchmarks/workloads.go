package benchmarks

import (
	"math/big"
	"math/rand/v2"

	"github.com/sarchlab/mmusim/trace"
)

// Params sizes a workload.
type Params struct {
	LineBytes int
	Contexts  int
	Footprint uint64
	Accesses  int
}

// Workload generates a trace for the harness.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload stresses
	Description string

	// Generate produces the records to replay
	Generate func(p Params, rng *rand.Rand) []trace.Record
}

// GetWorkloads returns the standard set of workloads.
func GetWorkloads() []Workload {
	return []Workload{
		sequential(),
		strided(),
		random(),
		pingPong(),
		producerConsumer(),
	}
}

// GetCoreWorkloads returns a small set for quick checks.
func GetCoreWorkloads() []Workload {
	return []Workload{
		sequential(),
		pingPong(),
	}
}

func words(p Params) uint64 {
	return p.Footprint / 8
}

func load(addr uint64) trace.Record {
	return trace.Record{Op: trace.OpRead, Addr: addr}
}

// store writes a 64-bit word at a word-aligned address.
func store(lineBytes int, addr, v uint64) trace.Record {
	lo := int(addr%uint64(lineBytes)) * 8

	return trace.Record{
		Op:   trace.OpPartial,
		Addr: addr,
		Lo:   lo,
		Hi:   lo + 63,
		Data: new(big.Int).SetUint64(v),
	}
}

func switchTo(ctx int) trace.Record {
	return trace.Record{Op: trace.OpContext, Context: ctx}
}

// 1. Sequential - streams through the footprint, writing then reading
func sequential() Workload {
	return Workload{
		Name:        "sequential",
		Description: "word-by-word write pass then read pass - measures spatial locality",
		Generate: func(p Params, _ *rand.Rand) []trace.Record {
			n := min(words(p), uint64(p.Accesses/2))
			recs := make([]trace.Record, 0, 2*n)

			for i := uint64(0); i < n; i++ {
				recs = append(recs, store(p.LineBytes, i*8, i))
			}

			for i := uint64(0); i < n; i++ {
				recs = append(recs, load(i*8))
			}

			return recs
		},
	}
}

// 2. Strided - touches one word per line so every access is a new line
func strided() Workload {
	return Workload{
		Name:        "strided",
		Description: "one read per line, four passes - measures capacity and conflict misses",
		Generate: func(p Params, _ *rand.Rand) []trace.Record {
			lines := max(p.Footprint/uint64(p.LineBytes), 1)
			recs := make([]trace.Record, 0, p.Accesses)

			for pass := 0; len(recs) < p.Accesses && pass < 4; pass++ {
				for l := uint64(0); l < lines && len(recs) < p.Accesses; l++ {
					recs = append(recs, load(l*uint64(p.LineBytes)))
				}
			}

			return recs
		},
	}
}

// 3. Random - uniform reads and writes from every context
func random() Workload {
	return Workload{
		Name:        "random",
		Description: "uniform random reads and writes from all contexts - no locality",
		Generate: func(p Params, rng *rand.Rand) []trace.Record {
			n := max(words(p), 1)
			recs := make([]trace.Record, 0, p.Accesses+p.Accesses/16)

			for i := 0; i < p.Accesses; i++ {
				if i%16 == 0 {
					recs = append(recs, switchTo(rng.IntN(p.Contexts)))
				}

				addr := rng.Uint64N(n) * 8
				if rng.IntN(4) == 0 {
					recs = append(recs, store(p.LineBytes, addr, rng.Uint64()))
				} else {
					recs = append(recs, load(addr))
				}
			}

			return recs
		},
	}
}

// 4. Ping-pong - two contexts take turns writing one line
func pingPong() Workload {
	return Workload{
		Name:        "ping_pong",
		Description: "two contexts alternately write the same line - measures invalidation traffic",
		Generate: func(p Params, _ *rand.Rand) []trace.Record {
			recs := make([]trace.Record, 0, 2*p.Accesses)

			for i := 0; i < p.Accesses; i++ {
				recs = append(recs,
					switchTo(i%min(p.Contexts, 2)),
					store(p.LineBytes, 0, uint64(i)),
				)
			}

			return recs
		},
	}
}

// 5. Producer/consumer - context 0 fills a buffer, the last context reads it
func producerConsumer() Workload {
	return Workload{
		Name:        "producer_consumer",
		Description: "one context writes a buffer, another reads it back - measures sharing misses",
		Generate: func(p Params, _ *rand.Rand) []trace.Record {
			chunk := min(uint64(4*p.LineBytes/8), max(words(p), 1))
			consumer := p.Contexts - 1

			var recs []trace.Record

			for base := uint64(0); len(recs) < p.Accesses; base = (base + chunk) % max(words(p), 1) {
				recs = append(recs, switchTo(0))
				for i := uint64(0); i < chunk; i++ {
					recs = append(recs, store(p.LineBytes, (base+i)*8, base+i))
				}

				recs = append(recs, switchTo(consumer))
				for i := uint64(0); i < chunk; i++ {
					recs = append(recs, load((base+i)*8))
				}
			}

			return recs
		},
	}
}
