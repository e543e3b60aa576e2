package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a custom prometheus.Collector tracking bytes in/out per command
// code, the client-offline count, and whether a recording is active. Built
// the same way the socket-stats exporter's TCPInfoCollector is: a
// Describe/Collect pair guarded by a mutex, registered once at startup.
// Nil is a valid *Metrics; every method on it no-ops.
type Metrics struct {
	mu sync.Mutex

	bytesIn      map[byte]float64
	bytesOut     map[byte]float64
	offlineCount float64
	recording    bool
}

var cmdNames = map[byte]string{
	CmdClose: "close", CmdData: "data", CmdRaw: "raw",
	CmdRecData: "rec_data", CmdRecRaw: "rec_raw", CmdRecStop: "rec_stop",
	CmdRestart: "restart", CmdConfig: "config", CmdDataIMU: "data_imu",
	CmdRestartFile: "restart_file",
}

var (
	bytesInDesc = prometheus.NewDesc(
		"matsense_service_bytes_in_total", "Request bytes received, by command.",
		[]string{"command"}, nil)
	bytesOutDesc = prometheus.NewDesc(
		"matsense_service_bytes_out_total", "Reply bytes sent, by command.",
		[]string{"command"}, nil)
	offlineDesc = prometheus.NewDesc(
		"matsense_service_client_offline_total", "Requests that failed with a client-offline error.",
		nil, nil)
	recordingDesc = prometheus.NewDesc(
		"matsense_service_recording", "1 if a recording is currently active.",
		nil, nil)
)

// NewMetrics builds an unregistered Metrics collector; call
// reg.MustRegister/Register on the result.
func NewMetrics() *Metrics {
	return &Metrics{
		bytesIn:  make(map[byte]float64),
		bytesOut: make(map[byte]float64),
	}
}

func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	if m == nil {
		return
	}
	descs <- bytesInDesc
	descs <- bytesOutDesc
	descs <- offlineDesc
	descs <- recordingDesc
}

func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for cmd, v := range m.bytesIn {
		metrics <- prometheus.MustNewConstMetric(bytesInDesc, prometheus.CounterValue, v, cmdNames[cmd])
	}
	for cmd, v := range m.bytesOut {
		metrics <- prometheus.MustNewConstMetric(bytesOutDesc, prometheus.CounterValue, v, cmdNames[cmd])
	}
	metrics <- prometheus.MustNewConstMetric(offlineDesc, prometheus.CounterValue, m.offlineCount)
	recording := 0.0
	if m.recording {
		recording = 1.0
	}
	metrics <- prometheus.MustNewConstMetric(recordingDesc, prometheus.GaugeValue, recording)
}

func (m *Metrics) addRequest(cmd byte, n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesIn[cmd] += float64(n)
}

func (m *Metrics) addReply(cmd byte, n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesOut[cmd] += float64(n)
}

func (m *Metrics) addOffline() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offlineCount++
}

func (m *Metrics) setRecording(active bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recording = active
}
