package worker

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the processing worker's half of the domain-stack instrumentation
// described in SPEC_FULL.md §2b/§4.6: a frame counter and a current-rate
// gauge, updated once per second alongside the existing fps log line. Nil is
// a valid *Metrics (all methods become no-ops), so callers that don't want
// metrics never have to special-case it.
type Metrics struct {
	framesProduced prometheus.Counter
	frameRate      prometheus.Gauge
}

// NewMetrics registers the worker's counters/gauges against reg. reg may be
// a *prometheus.Registry built by the caller, or prometheus.DefaultRegisterer.
// If reg already holds them (a pipeline rebuilt after RESTART), the existing
// collectors are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matsense",
			Subsystem: "worker",
			Name:      "frames_produced_total",
			Help:      "Total frames pulled from the frame source and processed.",
		}),
		frameRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matsense",
			Subsystem: "worker",
			Name:      "frame_rate",
			Help:      "Most recently measured frames-per-second.",
		}),
	}
	if err := reg.Register(m.framesProduced); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.framesProduced = are.ExistingCollector.(prometheus.Counter)
	}
	if err := reg.Register(m.frameRate); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.frameRate = are.ExistingCollector.(prometheus.Gauge)
	}
	return m, nil
}

func (m *Metrics) addFrames(n int) {
	if m == nil {
		return
	}
	m.framesProduced.Add(float64(n))
}

func (m *Metrics) setRate(fps float64) {
	if m == nil {
		return
	}
	m.frameRate.Set(fps)
}
