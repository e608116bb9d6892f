package hierarchy

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/mmusim/cache"
)

// LineDump is one valid line as seen by inspection tools.
type LineDump struct {
	Unit    string `json:"unit"`
	Set     uint64 `json:"set"`
	Way     uint64 `json:"way"`
	Address uint64 `json:"address"`
	Data    string `json:"data"`
	State   string `json:"state"`
	Dirty   bool   `json:"dirty"`
}

// Dump lists every valid line of every unit, top to bottom, in set and way
// order. It does not disturb replacement or coherence state.
func (s *Session) Dump() []LineDump {
	var out []LineDump

	for _, u := range s.Units() {
		out = append(out, DumpUnit(u)...)
	}

	return out
}

// DumpUnit lists the valid lines of one unit.
func DumpUnit(u *cache.Unit) []LineDump {
	var out []LineDump

	for _, set := range u.SetIndices() {
		for way := 0; way < u.Associativity(); way++ {
			a, e, ok := u.SeeEntry(set, uint64(way))
			if !ok {
				continue
			}

			info, _ := u.Probe(a)
			out = append(out, LineDump{
				Unit:    u.Name(),
				Set:     set,
				Way:     uint64(way),
				Address: a.Uint64(),
				Data:    e.Get("data").String(),
				State:   info.State.String(),
				Dirty:   info.Dirty,
			})
		}
	}

	return out
}

// UnitStats pairs a unit name with its counters.
type UnitStats struct {
	Unit string
	cache.Statistics
}

// Stats returns the counters of every unit, top to bottom.
func (s *Session) Stats() []UnitStats {
	units := s.Units()
	out := make([]UnitStats, len(units))

	for i, u := range units {
		out[i] = UnitStats{Unit: u.Name(), Statistics: u.Stats()}
	}

	return out
}

// ResetStats clears the counters of every unit.
func (s *Session) ResetStats() {
	for _, u := range s.Units() {
		u.ResetStats()
	}
}

// PrintStats writes a table of the unit counters.
func (s *Session) PrintStats(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "unit\treads\twrites\thits\tmisses\thit rate\tevictions\twrite-backs\tsnoops\tback-inv")

	for _, st := range s.Stats() {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.2f%%\t%d\t%d\t%d\t%d\n",
			st.Unit, st.Reads, st.Writes, st.Hits, st.Misses, st.HitRate()*100,
			st.Evictions, st.Writebacks, st.Snoops, st.BackInvalidations)
	}

	_ = tw.Flush()
}

// PrintDump writes the valid lines of every unit.
func (s *Session) PrintDump(w io.Writer) {
	for _, d := range s.Dump() {
		dirty := ""
		if d.Dirty {
			dirty = " dirty"
		}

		_, _ = fmt.Fprintf(w, "%s[%d][%d] 0x%x %s %s%s\n",
			d.Unit, d.Set, d.Way, d.Address, d.State, d.Data, dirty)
	}
}
