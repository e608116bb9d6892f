package monitoring_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/hierarchy"
	"github.com/sarchlab/mmusim/monitoring"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m *monitoring.Monitor
		s *hierarchy.Session
		h http.Handler
	)

	BeforeEach(func() {
		var err error
		s, err = hierarchy.New(config.Default())
		Expect(err).NotTo(HaveOccurred())

		m = monitoring.NewMonitor().WithProfileDuration(10 * time.Millisecond)
		m.RegisterSession(s)
		h = m.Handler()
	})

	It("should list units", func() {
		rec := get(h, "/api/list_units")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"L10", "L11", "L2"}))
	})

	It("should show the config", func() {
		rec := get(h, "/api/config")

		c, err := config.Parse(rec.Body.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Levels).To(HaveLen(2))
	})

	It("should show a unit", func() {
		rec := get(h, "/api/unit/L11")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("L11"))
	})

	It("should report unknown units", func() {
		Expect(get(h, "/api/unit/L3").Code).To(Equal(http.StatusNotFound))
		Expect(get(h, "/api/unit/L3/lines").Code).To(Equal(http.StatusNotFound))
	})

	It("should list the lines of a unit", func() {
		m.Do(func() {
			Expect(s.Store(0x40, 8, 0x99)).To(Succeed())
		})

		var lines []hierarchy.LineDump
		Expect(json.Unmarshal(get(h, "/api/unit/L10/lines").Body.Bytes(), &lines)).
			To(Succeed())
		Expect(lines).To(HaveLen(1))
		Expect(lines[0].Address).To(Equal(uint64(0x40)))
		Expect(lines[0].State).To(Equal("M"))

		Expect(get(h, "/api/unit/L2/lines").Body.String()).To(Equal("[]"))
	})

	It("should list statistics", func() {
		m.Do(func() {
			Expect(s.Store(0x40, 8, 0x99)).To(Succeed())
		})

		var stats []map[string]any
		Expect(json.Unmarshal(get(h, "/api/stats").Body.Bytes(), &stats)).To(Succeed())
		Expect(stats).To(HaveLen(3))
		Expect(stats[0]).To(HaveKeyWithValue("unit", "L10"))
		Expect(stats[0]).To(HaveKeyWithValue("writes", BeNumerically("==", 1)))
	})

	It("should check coherence", func() {
		Expect(get(h, "/api/coherent/0x40").Body.String()).
			To(Equal(`{"coherent":true}`))
		Expect(get(h, "/api/coherent/zz").Code).To(Equal(http.StatusBadRequest))
	})

	It("should report process resources", func() {
		rec := get(h, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should collect a CPU profile", func() {
		rec := get(h, "/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("SampleType"))
	})

	It("should refuse requests without a session", func() {
		h := monitoring.NewMonitor().Handler()

		Expect(get(h, "/api/list_units").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should serve over TCP", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = m.StopServer() }()

		rsp, err := http.Get(url + "/api/list_units")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = rsp.Body.Close() }()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("L2"))
	})
})
