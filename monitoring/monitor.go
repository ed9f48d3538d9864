// Package monitoring turns a running simulation into an HTTP server that can
// be inspected and stopped from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

type status struct {
	Now            float64 `json:"now"`
	State          string  `json:"state"`
	EndReason      string  `json:"end_reason"`
	Replication    int     `json:"replication"`
	EventsExecuted uint64  `json:"events_executed"`
	PendingEvents  int     `json:"pending_events"`
}

type metrics struct {
	simTime       prometheus.Gauge
	events        prometheus.Counter
	pendingEvents prometheus.Gauge
	replications  prometheus.Counter
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
//
// The monitor observes the executive as a hook. All the state it serves is
// copied after each event, and stop requests are applied by the hook. The
// element index is copied when the model is registered and before every
// experiment. Serializing an element still reads its fields while the
// simulation may be changing them, so those values are only a best-effort
// view of a running model.
type Monitor struct {
	executive  *sim.Executive
	model      *model.Model
	portNumber int

	elementsLock sync.RWMutex
	elementNames []string
	elementIndex map[string]model.Element

	statusLock    sync.RWMutex
	status        status
	stopRequested atomic.Bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	registry *prometheus.Registry
	metrics  metrics

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		metrics: metrics{
			simTime: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "desim",
				Name:      "simulation_time_seconds",
				Help:      "Current simulated time",
			}),
			events: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "desim",
				Name:      "events_executed_total",
				Help:      "Number of events executed over all replications",
			}),
			pendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "desim",
				Name:      "pending_events",
				Help:      "Number of events in the calendar",
			}),
			replications: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "desim",
				Name:      "replications_completed_total",
				Help:      "Number of replications completed",
			}),
		},
	}

	m.registry.MustRegister(
		m.metrics.simTime,
		m.metrics.events,
		m.metrics.pendingEvents,
		m.metrics.replications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		logrus.Warnf("port number %d is not allowed for the monitoring "+
			"server, using a random port instead", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterExecutive makes the monitor observe the executive.
func (m *Monitor) RegisterExecutive(e *sim.Executive) {
	m.executive = e
	e.AcceptHook(m)
	m.updateStatus(e)
}

// RegisterModel registers the model whose elements can be inspected.
func (m *Monitor) RegisterModel(md *model.Model) {
	m.model = md
	md.AcceptHook(m)
	m.snapshotElements()
}

// Func updates the status after each event and applies stop requests.
func (m *Monitor) Func(ctx sim.HookCtx) {
	if ctx.Pos == model.HookPosBeforeExperiment &&
		m.model != nil && ctx.Domain == sim.Hookable(m.model) {
		m.snapshotElements()
		return
	}

	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	e, ok := ctx.Domain.(*sim.Executive)
	if !ok {
		return
	}

	m.metrics.events.Inc()
	m.updateStatus(e)

	if m.stopRequested.CompareAndSwap(true, false) {
		logrus.Infof("stop requested by the monitor at %.10f",
			e.CurrentTime())
		e.Stop()
	}
}

// ReplicationStarted records the number of the replication being run.
func (m *Monitor) ReplicationStarted(n int) {
	m.statusLock.Lock()
	m.status.Replication = n
	m.statusLock.Unlock()

	if m.executive != nil {
		m.updateStatus(m.executive)
	}
}

// ReplicationCompleted records the end of a replication.
func (m *Monitor) ReplicationCompleted() {
	m.metrics.replications.Inc()

	if m.executive != nil {
		m.updateStatus(m.executive)
	}
}

func (m *Monitor) updateStatus(e *sim.Executive) {
	now := float64(e.CurrentTime())
	pending := e.NumPendingEvents()

	m.statusLock.Lock()
	m.status.Now = now
	m.status.State = e.State().String()
	m.status.EndReason = e.EndReason().String()
	m.status.EventsExecuted = e.NumEventsExecuted()
	m.status.PendingEvents = pending
	m.statusLock.Unlock()

	m.metrics.simTime.Set(now)
	m.metrics.pendingEvents.Set(float64(pending))
}

func (m *Monitor) snapshotElements() {
	elements := m.model.Elements()
	names := make([]string, 0, len(elements))
	index := make(map[string]model.Element, len(elements))

	for _, e := range elements {
		names = append(names, e.Name())
		index[e.Name()] = e
	}

	m.elementsLock.Lock()
	m.elementNames = names
	m.elementIndex = index
	m.elementsLock.Unlock()
}

func (m *Monitor) currentStatus() status {
	m.statusLock.RLock()
	defer m.statusLock.RUnlock()

	return m.status
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(sim.GetIDGenerator().Generate(), name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the progress list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the HTTP handler that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/stop", m.stop).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/elements", m.listElements).Methods(http.MethodGet)
	r.HandleFunc("/api/element/{name}", m.elementDetails).
		Methods(http.MethodGet)
	r.HandleFunc("/api/field/{json}", m.fieldValue).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.listener = listener
	m.server = srv

	logrus.Infof("monitoring simulation with http://localhost:%d", m.Port())

	go func() {
		err := srv.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			logrus.Errorf("monitoring server stopped: %v", err)
		}
	}()
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() {
	if m.server == nil {
		return
	}

	err := m.server.Close()
	if err != nil {
		logrus.Warnf("failed to close monitoring server: %v", err)
	}

	m.server = nil
}

// Port returns the port the server listens on, or 0 if it is not started.
func (m *Monitor) Port() int {
	if m.listener == nil {
		return 0
	}

	return m.listener.Addr().(*net.TCPAddr).Port
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%.10f}", m.currentStatus().Now)
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.currentStatus())
}

func (m *Monitor) stop(w http.ResponseWriter, _ *http.Request) {
	m.stopRequested.Store(true)
	w.WriteHeader(http.StatusAccepted)
}

func (m *Monitor) listElements(w http.ResponseWriter, _ *http.Request) {
	m.elementsLock.RLock()
	names := make([]string, len(m.elementNames))
	copy(names, m.elementNames)
	m.elementsLock.RUnlock()

	writeJSON(w, names)
}

func (m *Monitor) elementDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	element := m.findElementOr404(w, name)
	if element == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(element)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	ElementName string `json:"element_name,omitempty"`
	FieldName   string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	element := m.findElementOr404(w, req.ElementName)
	if element == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(element)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findElementOr404(
	w http.ResponseWriter,
	name string,
) model.Element {
	m.elementsLock.RLock()
	element := m.elementIndex[name]
	m.elementsLock.RUnlock()

	if element == nil {
		http.Error(w, "Element not found", http.StatusNotFound)
	}

	return element
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
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

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

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
		logrus.Panic(err)
	}
}
