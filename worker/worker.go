// Package worker implements the Processing Worker (C6): the goroutine that
// owns the frame source and the DSP pipeline, publishing results to the
// shared bus and taking commands off the control channel. Grounded on
// matsense/serverkit/proc.py (Proc.run/warm_up/post_action).
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atomiechen/MatSense/bus"
	"github.com/atomiechen/MatSense/control"
	"github.com/atomiechen/MatSense/frame"
	"github.com/atomiechen/MatSense/pressure"
)

// fpsCheckInterval is how often the rate log line and metrics update.
const fpsCheckInterval = 1 * time.Second

// Config holds the non-DSP knobs for a Worker: everything pressure.Config
// doesn't already cover.
type Config struct {
	WarmUp   time.Duration
	CopyTags bool
	IMU      bool
}

// Worker drives one lifetime of the processing pipeline: from construction
// (which blocks on warm-up and DSP priming) through Run (which blocks until
// Stop, Restart, or the frame source is exhausted).
type Worker struct {
	cfg     Config
	source  frame.Source
	total   int
	handler *pressure.Handler
	bus     *bus.Bus
	links   *control.Pair
	metrics *Metrics

	rec *recorder

	frameIdx      int32
	lastFrameIdx  int32
	startTime     time.Time
	lastCheckTime time.Time
}

// New builds a Worker: it runs the optional warm-up loop, then primes the
// DSP pipeline from src (this is the same blocking startup sequence as the
// reference implementation's Proc.run, just split out of the main loop so
// construction failures are reported before Run is ever called).
func New(cfg Config, pcfg pressure.Config, src frame.Source, b *bus.Bus, links *control.Pair, metrics *Metrics) (*Worker, error) {
	total := pcfg.Rows * pcfg.Cols
	w := &Worker{cfg: cfg, source: src, total: total, bus: b, links: links, metrics: metrics}

	if cfg.WarmUp > 0 {
		w.warmUp(cfg.WarmUp)
	}

	w.startTime = time.Now()
	w.lastCheckTime = w.startTime

	primer := newSourcePrimer(src, total)
	h, err := pressure.NewHandler(pcfg, primer)
	if err != nil {
		return nil, fmt.Errorf("worker: build pressure handler: %w", err)
	}
	w.handler = h

	return w, nil
}

func (w *Worker) warmUp(d time.Duration) {
	log.Println("warming up processing...")
	buf := make([]float64, w.total)
	imu := make([]int16, 6)
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if _, err := w.source.Fetch(buf, imu); err != nil && !errors.Is(err, frame.ErrTimeout) {
			return
		}
	}
}

// Run is the main cooperative loop (SPEC_FULL.md §4.6). It returns a
// non-nil restartPayload when it exits because of a control.Restart
// message; the caller is expected to tear this Worker down and build a new
// one from that payload. A nil payload with a nil error means a clean Stop
// or frame-source exhaustion.
func (w *Worker) Run(ctx context.Context) (restartPayload []byte, err error) {
	log.Println("running processing...")

	raw := make([]float64, w.total)
	imu := make([]int16, 6)
	inter := make([]float64, w.total)

	for {
		if restartPayload, stop, ferr := w.handleControl(); stop || restartPayload != nil || ferr != nil {
			return restartPayload, ferr
		}

		tags, ferr := w.source.Fetch(raw, imu)
		if ferr != nil {
			if errors.Is(ferr, frame.ErrTimeout) || errors.Is(ferr, frame.ErrInvalidFrame) {
				continue
			}
			if errors.Is(ferr, frame.ErrFileEnd) {
				log.Printf("processing time: %.3fs", time.Since(w.startTime).Seconds())
				w.links.ToService.Send(control.Stop{})
				return nil, nil
			}
			w.links.ToService.Send(control.Stop{})
			return nil, ferr
		}
		w.frameIdx++

		curTime := time.Now()
		w.handler.Handle(raw, inter)

		var imuOut [6]float64
		for i, v := range imu {
			imuOut[i] = float64(v)
		}
		w.bus.Publish(raw, inter, imuOut, w.frameIdx)

		w.postAction(curTime, tags)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// handleControl performs the non-blocking C5 poll and acts on at most one
// message per loop iteration, matching the reference implementation's
// single pipe_conn.poll() per run() iteration.
func (w *Worker) handleControl() (restartPayload []byte, stop bool, err error) {
	msg, ok := w.links.ToProcessing.Poll()
	if !ok {
		return nil, false, nil
	}

	switch m := msg.(type) {
	case control.Stop:
		w.links.ToService.Send(control.Stop{})
		return nil, true, nil

	case control.Restart:
		return m.Config, false, nil

	case control.RecStart:
		// DESIGN.md Open Question 2: corrected from the reference
		// implementation's `True if flag == FLAG_REC_RAW else True`.
		recordRaw := m.Raw
		if w.rec != nil {
			log.Printf("stop recording: %s", w.rec.filename)
			w.rec.close()
		}
		rec, rerr := startRecording(m.Filename, recordRaw, w.cfg.CopyTags)
		if rerr != nil {
			log.Printf("failed to record: %v", rerr)
			w.links.ToService.Send(control.RecAck{OK: false})
			return nil, false, nil
		}
		w.rec = rec
		log.Printf("recording to: %s", rec.filename)
		w.links.ToService.Send(control.RecAck{OK: true, Filename: rec.filename})

	case control.RecStop:
		if w.rec != nil {
			log.Printf("stop recording: %s", w.rec.filename)
			w.rec.close()
			w.rec = nil
		}

	case control.RecBreak:
		// Reserved for rolling recording files; no-op today.
	}

	return nil, false, nil
}

// postAction runs the once-per-second fps/metrics reporting and, if a
// recording is active, appends one line to it.
func (w *Worker) postAction(curTime time.Time, tags frame.Tags) {
	if curTime.Sub(w.lastCheckTime) >= fpsCheckInterval {
		duration := curTime.Sub(w.lastCheckTime).Seconds()
		running := curTime.Sub(w.startTime).Seconds()
		frames := w.frameIdx - w.lastFrameIdx
		fps := float64(frames) / duration
		log.Printf("frame rate: %.3f fps  running time: %.3fs", fps, running)

		w.metrics.addFrames(int(frames))
		w.metrics.setRate(fps)

		w.lastFrameIdx = w.frameIdx
		w.lastCheckTime = curTime
	}

	if w.rec == nil {
		return
	}

	frameIdx := tags.Index
	timestampUs := tags.TimestampUs
	if !w.rec.copyTags {
		frameIdx = w.frameIdx
		timestampUs = curTime.UnixMicro()
	}

	var data []float64
	if w.rec.raw {
		data = w.bus.Raw
	} else {
		data = w.bus.Out
	}
	if werr := w.rec.writeLine(data, frameIdx, timestampUs); werr != nil {
		log.Printf("recording write failed: %v", werr)
	}
}
