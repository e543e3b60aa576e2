package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atomiechen/MatSense/bus"
	"github.com/atomiechen/MatSense/config"
	"github.com/atomiechen/MatSense/control"
	"github.com/atomiechen/MatSense/frame"
	"github.com/atomiechen/MatSense/service"
	"github.com/atomiechen/MatSense/worker"
)

// ServeCommand runs the full pipeline: C1 (frame source) feeding C6
// (processing worker) through C2's config wiring, C4 (bus),
// and C7 (service worker), wired together and torn down/rebuilt whenever
// either worker returns a RESTART payload. Grounded on
// matsense/server.py's main() and matsense/serverkit/proc.py/userver.py's
// process/thread supervision.
type ServeCommand struct {
	ConfigFile string `long:"config" description:"YAML config file to merge over defaults"`

	Port     string  `short:"p" long:"port" description:"serial port device"`
	Baudrate int     `short:"b" long:"baudrate" description:"serial baudrate"`
	Timeout  float64 `short:"t" long:"timeout" description:"serial read timeout in seconds"`
	Shape    []int   `short:"n" long:"shape" description:"sensor shape (1 or 2 ints)"`
	IMU      bool    `short:"i" long:"imu" description:"parse trailing IMU bytes"`
	Protocol string  `long:"protocol" description:"serial framing protocol: simple or secure"`

	Address string `short:"a" long:"address" description:"service socket address (host:port, or a UNIX path)"`
	UDP     bool   `short:"u" long:"udp" description:"use UDP instead of a UNIX domain datagram socket"`

	NoConvert      bool    `long:"no_convert" description:"skip voltage-resistance conversion"`
	V0             string  `long:"V0" description:"reference voltage expression"`
	FilterSpatial  string  `long:"filter_spatial" description:"spatial filter: none, ideal, butterworth, gaussian"`
	FilterTemporal string  `long:"filter_temporal" description:"temporal filter: none, moving_average, rectangular_window"`
	CaliFrames     int     `long:"cali_frames" description:"calibration frame count"`
	WarmUp         float64 `long:"warm_up" description:"warm-up duration in seconds"`
	Intermediate   int     `long:"intermediate" description:"intermediate tap point, -1 disables"`

	Metrics        bool   `long:"metrics" description:"enable the Prometheus /metrics listener"`
	MetricsAddress string `long:"metrics_address" description:"address for the /metrics listener"`

	Debug bool `short:"d" long:"debug" description:"use the no-op debug frame source instead of serial hardware"`

	Args struct {
		Filenames []string `description:"replay recorded CSV file(s) instead of opening a serial port"`
	} `positional-args:"yes"`
}

func (c *ServeCommand) Execute(args []string) error {
	cfg, err := c.buildConfig()
	if err != nil {
		return fmt.Errorf("matsensed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	if boolVal(cfg.Metrics.Enabled) {
		addr := stringVal(cfg.Metrics.ListenAddress)
		if addr == "" {
			addr = "localhost:9090"
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			log.Printf("metrics listening on %s", addr)
			if serr := srv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
				log.Printf("metrics listener stopped: %v", serr)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	for {
		next, err := c.runOnce(ctx, cfg, reg)
		if err != nil {
			return fmt.Errorf("matsensed: %w", err)
		}
		if next == nil {
			return nil
		}
		restarted, err := config.ParseYAML(next)
		if err != nil {
			return fmt.Errorf("matsensed: restart payload: %w", err)
		}
		if err := config.Normalize(&restarted); err != nil {
			return fmt.Errorf("matsensed: restart payload: %w", err)
		}
		cfg = restarted
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// runOnce builds one generation of the pipeline and runs it to completion.
// A non-nil return means the pipeline was torn down by a RESTART; the
// caller rebuilds from it.
func (c *ServeCommand) runOnce(ctx context.Context, cfg config.Config, reg *prometheus.Registry) ([]byte, error) {
	pcfg, err := config.PressureConfig(cfg)
	if err != nil {
		return nil, err
	}
	wcfg := config.WorkerConfig(cfg)
	// Replayed recordings carry their own tags; record those unchanged.
	wcfg.CopyTags = !c.Debug && len(c.Args.Filenames) > 0
	total := pcfg.Rows * pcfg.Cols

	src, err := c.buildSource(cfg, total)
	if err != nil {
		return nil, err
	}

	b := bus.New(total)
	links := control.NewPair(8, 8, nil, nil)

	workerMetrics, err := worker.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register worker metrics: %w", err)
	}

	w, err := worker.New(wcfg, pcfg, src, b, links, workerMetrics)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("build worker: %w", err)
	}

	transport, err := service.NewTransport(stringVal(cfg.Connection.ServerAddress), boolVal(cfg.Connection.UDP), total*8)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("build transport: %w", err)
	}

	serviceMetrics := service.NewMetrics()
	if rerr := reg.Register(serviceMetrics); rerr != nil {
		are, ok := rerr.(prometheus.AlreadyRegisteredError)
		if !ok {
			transport.Close()
			src.Close()
			return nil, fmt.Errorf("register service metrics: %w", rerr)
		}
		// A previous generation registered it; keep using that collector.
		serviceMetrics = are.ExistingCollector.(*service.Metrics)
	}

	svc := service.New(transport, b, links, total, cfg, serviceMetrics, service.Options{})

	type outcome struct {
		payload []byte
		err     error
	}
	workerDone := make(chan outcome, 1)
	serviceDone := make(chan outcome, 1)

	go func() {
		payload, err := w.Run(ctx)
		workerDone <- outcome{payload, err}
	}()
	go func() {
		payload, err := svc.Run(ctx)
		serviceDone <- outcome{payload, err}
	}()

	var workerOut, serviceOut outcome
	for i := 0; i < 2; i++ {
		select {
		case workerOut = <-workerDone:
		case serviceOut = <-serviceDone:
		}
	}

	transport.Close()
	src.Close()

	if workerOut.err != nil {
		return nil, fmt.Errorf("processing worker: %w", workerOut.err)
	}
	if serviceOut.err != nil {
		return nil, fmt.Errorf("service worker: %w", serviceOut.err)
	}
	if workerOut.payload != nil {
		return workerOut.payload, nil
	}
	return serviceOut.payload, nil
}

func (c *ServeCommand) buildSource(cfg config.Config, total int) (frame.Source, error) {
	if c.Debug {
		return frame.NewDebugSource(), nil
	}
	if len(c.Args.Filenames) > 0 {
		return frame.NewFileSource(c.Args.Filenames, total), nil
	}

	timeout := time.Duration(floatVal(cfg.Serial.Timeout) * float64(time.Second))
	port, err := frame.OpenSerial(stringVal(cfg.Serial.Port), intVal(cfg.Serial.Baudrate), timeout)
	if err != nil {
		return nil, err
	}

	if stringVal(cfg.Serial.Protocol) == "secure" {
		return frame.NewSecureSource(port, port, total, boolVal(cfg.Serial.IMU), timeout), nil
	}
	return frame.NewSimpleSource(port, port, total, timeout), nil
}

// buildConfig layers defaults ⊕ file ⊕ CLI, per SPEC_FULL.md §4.8.
func (c *ServeCommand) buildConfig() (config.Config, error) {
	base, err := config.Defaults()
	if err != nil {
		return config.Config{}, err
	}

	if c.ConfigFile != "" {
		raw, rerr := os.ReadFile(c.ConfigFile)
		if rerr != nil {
			return config.Config{}, fmt.Errorf("read config file: %w", rerr)
		}
		fileOverlay, perr := config.ParseYAML(raw)
		if perr != nil {
			return config.Config{}, fmt.Errorf("parse config file: %w", perr)
		}
		base = config.Merge(base, fileOverlay)
	}

	merged := config.Merge(base, c.cliOverlay())
	if err := config.Normalize(&merged); err != nil {
		return config.Config{}, fmt.Errorf("normalize: %w", err)
	}
	return merged, nil
}

// cliOverlay builds the explicitly-specified-on-the-CLI layer: only fields
// whose flag appeared in os.Args are set, everything else is left nil so it
// falls through to the file/defaults layers underneath it.
func (c *ServeCommand) cliOverlay() config.Config {
	var o config.Config

	if specified("shape", "n") {
		o.Sensor.Shape = c.Shape
	}
	if specified("port", "p") {
		o.Serial.Port = &c.Port
	}
	if specified("baudrate", "b") {
		o.Serial.Baudrate = &c.Baudrate
	}
	if specified("timeout", "t") {
		o.Serial.Timeout = &c.Timeout
	}
	if specified("imu", "i") {
		o.Serial.IMU = &c.IMU
	}
	if specified("protocol", "") {
		o.Serial.Protocol = &c.Protocol
	}
	if specified("address", "a") {
		o.Connection.ServerAddress = &c.Address
	}
	if specified("udp", "u") {
		o.Connection.UDP = &c.UDP
	}
	if specified("no_convert", "") {
		convert := !c.NoConvert
		o.Process.Convert = &convert
	}
	if specified("V0", "") {
		o.Process.V0 = &c.V0
	}
	if specified("filter_spatial", "") {
		o.Process.FilterSpatial = &c.FilterSpatial
	}
	if specified("filter_temporal", "") {
		o.Process.FilterTemporal = &c.FilterTemporal
	}
	if specified("cali_frames", "") {
		o.Process.CaliFrames = &c.CaliFrames
	}
	if specified("warm_up", "") {
		o.Process.WarmUp = &c.WarmUp
	}
	if specified("intermediate", "") {
		o.Process.Intermediate = &c.Intermediate
	}
	if specified("metrics", "") {
		o.Metrics.Enabled = &c.Metrics
	}
	if specified("metrics_address", "") {
		o.Metrics.ListenAddress = &c.MetricsAddress
	}

	return o
}

func boolVal(p *bool) bool {
	return p != nil && *p
}

func floatVal(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func stringVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
