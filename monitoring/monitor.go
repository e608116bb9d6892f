// Package monitoring serves the state of a running hierarchy over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/mmusim/cache"
	"github.com/sarchlab/mmusim/hierarchy"
)

// Monitor turns a session into a server that can be inspected while it
// runs. Every request holds the monitor lock, and so must every caller that
// changes the session.
type Monitor struct {
	lock       sync.Mutex
	session    *hierarchy.Session
	portNumber int
	profileFor time.Duration

	listener net.Listener
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileFor: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileFor = d
	return m
}

// RegisterSession sets the session to be inspected.
func (m *Monitor) RegisterSession(s *hierarchy.Session) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.session = s
}

// Do runs f while holding the monitor lock.
func (m *Monitor) Do(f func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	f()
}

// Handler returns the API routes.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/config", m.locked(m.showConfig))
	r.HandleFunc("/api/list_units", m.locked(m.listUnits))
	r.HandleFunc("/api/unit/{name}", m.locked(m.showUnit))
	r.HandleFunc("/api/unit/{name}/lines", m.locked(m.listLines))
	r.HandleFunc("/api/stats", m.locked(m.listStats))
	r.HandleFunc("/api/coherent/{addr}", m.locked(m.checkCoherent))
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer listens on the configured port and serves in the background.
// It returns the URL of the server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 0 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", actualPort, err)
	}

	m.listener = listener
	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring cache hierarchy with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Panic(err)
		}
	}()

	return url, nil
}

// Open shows the server in a browser.
func (m *Monitor) Open(url string) error {
	return browser.OpenURL(url + "/api/list_units")
}

// StopServer closes the listener.
func (m *Monitor) StopServer() error {
	if m.listener == nil {
		return nil
	}

	return m.listener.Close()
}

func (m *Monitor) locked(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.lock.Lock()
		defer m.lock.Unlock()

		if m.session == nil {
			http.Error(w, "no session", http.StatusServiceUnavailable)
			return
		}

		h(w, r)
	}
}

func (m *Monitor) showConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.session.Config())
}

func (m *Monitor) listUnits(w http.ResponseWriter, _ *http.Request) {
	units := m.session.Units()
	names := make([]string, len(units))

	for i, u := range units {
		names[i] = u.Name()
	}

	writeJSON(w, names)
}

// unitView is what /api/unit shows of a unit.
type unitView struct {
	Name          string
	Eviction      string
	Write         string
	Inclusion     string
	Coherence     string
	NumSets       uint64
	Associativity int
	Next          string
	Neighbors     []string
	Stats         cache.Statistics
}

func newUnitView(u *cache.Unit) *unitView {
	p := u.Policy()
	v := &unitView{
		Name:          u.Name(),
		Eviction:      p.Eviction.String(),
		Write:         p.Write.String(),
		Inclusion:     p.Inclusion.String(),
		Coherence:     p.Coherence.String(),
		NumSets:       u.NumSets(),
		Associativity: u.Associativity(),
		Next:          "memory",
		Stats:         u.Stats(),
	}

	if next, ok := u.Next(); ok {
		if n, ok := next.(*cache.Unit); ok {
			v.Next = n.Name()
		}
	}

	for _, n := range u.Neighbors() {
		v.Neighbors = append(v.Neighbors, n.Name())
	}

	return v
}

func (m *Monitor) findUnitOr404(w http.ResponseWriter, r *http.Request) *cache.Unit {
	name := mux.Vars(r)["name"]

	u, ok := m.session.Unit(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Unit not found"))
		dieOnErr(err)

		return nil
	}

	return u
}

func (m *Monitor) showUnit(w http.ResponseWriter, r *http.Request) {
	u := m.findUnitOr404(w, r)
	if u == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(newUnitView(u))
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listLines(w http.ResponseWriter, r *http.Request) {
	u := m.findUnitOr404(w, r)
	if u == nil {
		return
	}

	lines := hierarchy.DumpUnit(u)
	if lines == nil {
		lines = []hierarchy.LineDump{}
	}

	writeJSON(w, lines)
}

type statsRsp struct {
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

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	var rsp []statsRsp

	for _, st := range m.session.Stats() {
		rsp = append(rsp, statsRsp{
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

	writeJSON(w, rsp)
}

func (m *Monitor) checkCoherent(w http.ResponseWriter, r *http.Request) {
	addr, err := strconv.ParseUint(mux.Vars(r)["addr"], 0, 64)
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	ok, err := m.session.CheckCoherent(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, _ = fmt.Fprintf(w, "{\"coherent\":%t}", ok)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileFor)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
