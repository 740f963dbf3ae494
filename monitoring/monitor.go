// Package monitoring turns a running simulation into a small web server, so
// an operator can pause the clock, watch track occupancy, and read the KPI
// summary while the run is in progress.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/railwerk/yardsim/recording"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// Monitor exposes a simulation over HTTP. It also implements
// recording.Recorder, so teeing the event stream into it keeps the progress
// bars and the live summary current.
type Monitor struct {
	engine   sim.Engine
	layout   *yard.Layout
	stations map[string]int
	events   *recording.MemoryRecorder

	portNumber  int
	openBrowser bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	retrofitBar      *ProgressBar
}

// NewMonitor creates a monitor.
func NewMonitor() *Monitor {
	return &Monitor{events: recording.NewMemoryRecorder()}
}

// WithPortNumber sets the port of the monitoring server. Ports below 1000
// are rejected and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the status page in the local browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterEngine registers the engine driving the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterYard registers the layout whose occupancy is served, and the
// station counts used for the utilization KPI.
func (m *Monitor) RegisterYard(l *yard.Layout, stations map[string]int) {
	m.layout = l
	m.stations = stations
}

// Record consumes one simulation event. Tee the fleet driver's recorder
// into the monitor to keep the live views current.
func (m *Monitor) Record(e recording.SimEvent) {
	m.events.Record(e)

	if m.retrofitBar == nil {
		return
	}
	switch e.Kind {
	case recording.EvtWorkshopEnter:
		m.retrofitBar.IncrementInProgress(1)
	case recording.EvtWorkshopExit:
		m.retrofitBar.MoveInProgressToFinished(1)
	}
}

// TrackRetrofitProgress creates the progress bar fed by workshop events.
func (m *Monitor) TrackRetrofitProgress(totalWagons int) *ProgressBar {
	m.retrofitBar = m.CreateProgressBar("wagons retrofitted",
		uint64(totalWagons))
	return m.retrofitBar
}

// CreateProgressBar creates a progress bar shown on the status page.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:    sim.GetIDGenerator().Generate(),
		Name:  name,
		Total: total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the status page.
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

// StartServer starts the monitoring server on the configured port.
func (m *Monitor) StartServer() {
	r := m.router()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		dieOnErr(http.Serve(listener, r))
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open browser: %s\n", err)
		}
	}
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/summary", m.summary)
	r.HandleFunc("/api/tracks", m.listTracks)
	r.HandleFunc("/api/events", m.listEvents)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	return r
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	s := recording.BuildSummary(
		m.events.Events(),
		float64(m.engine.CurrentTime()),
		m.stations,
	)

	bytes, err := json.Marshal(s)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type trackRsp struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Capacity float64 `json:"capacity"`
	Occupied float64 `json:"occupied"`
	Wagons   int     `json:"wagons"`
}

func (m *Monitor) listTracks(w http.ResponseWriter, _ *http.Request) {
	var rsp []trackRsp
	for _, tt := range []yard.TrackType{
		yard.TrackParking, yard.TrackCollection, yard.TrackFeeder,
		yard.TrackWorkshop, yard.TrackRetrofitted, yard.TrackStationHead,
		yard.TrackCirculating,
	} {
		for _, t := range m.layout.TracksOfType(tt) {
			rsp = append(rsp, trackRsp{
				ID:       t.ID,
				Type:     t.Type.String(),
				Capacity: t.Capacity,
				Occupied: t.Occupied(),
				Wagons:   len(t.Wagons()),
			})
		}
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listEvents(w http.ResponseWriter, r *http.Request) {
	events := m.events.Events()

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "invalid limit: %s", limitStr)
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}

	bytes, err := json.Marshal(events)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
