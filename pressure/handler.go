// Package pressure implements the per-frame DSP pipeline that turns a raw
// sensor frame into a calibrated pressure map: voltage/resistance
// conversion, an FFT-based spatial low-pass filter, a temporal FIR filter,
// and rolling-window zero calibration.
//
// Grounded on matsense/process/data_handler.py (DataHandlerPressure), with
// the spatial filter rebuilt on gonum.org/v1/gonum/dsp/fourier instead of a
// hand-rolled DFT.
package pressure

import "fmt"

// Intermediate names a pipeline tap point exposed for diagnostics.
type Intermediate int

const (
	// IntermediateNone disables the intermediate tap.
	IntermediateNone Intermediate = -1
	// IntermediatePreFilter taps the signal right after conversion.
	IntermediatePreFilter Intermediate = 0
	// IntermediatePostSpatial taps after the spatial filter.
	IntermediatePostSpatial Intermediate = 1
	// IntermediatePostTemporal taps after the temporal filter.
	IntermediatePostTemporal Intermediate = 2
)

// ConvertMode selects the voltage-to-resistance conversion stage.
type ConvertMode int

const (
	// ConvertReciprocal is the default: y = R0Reci*v/(V0-v).
	ConvertReciprocal ConvertMode = iota
	// ConvertOpposite takes priority over ConvertDeltaR when both are
	// configured (see DESIGN.md Open Question decisions).
	ConvertOpposite
	// ConvertDeltaR normalizes against a baseline resistance estimated at
	// startup (R0Start).
	ConvertDeltaR
)

// Config holds every knob the Handler needs to build its internal state.
// It is filled in by config.Config (C8); Handler never reads YAML directly.
type Config struct {
	Rows, Cols int
	Mask       []float64 // row-major R*C, nil disables masking

	Convert    bool
	ConvertMode ConvertMode
	V0         float64
	R0Reci     float64

	SpatialFilter bool
	SpatialCutoff float64
	SpatialWindow SpatialWindow
	ButterworthN  int

	TemporalFilter bool
	TemporalSize   int
	TemporalKind   TemporalKind
	RWCutoff       float64

	CaliFrames        int
	CaliWinSize       int
	CaliWinBufferSize int
	CaliThreshold     float64

	Intermediate Intermediate
}

// Handler owns all restartable pipeline state: spatial/temporal kernels,
// ring buffers, and the calibration baseline. A Handler is built once per
// pipeline lifetime and discarded on Restart.
type Handler struct {
	cfg   Config
	total int

	spatial  *spatialFilter
	temporal *temporalFilter
	cali     *calibrator

	r0Start []float64 // only used in ConvertDeltaR
}

// NewHandler builds pipeline state from cfg. primer supplies the frames
// needed to estimate R0Start (delta-R mode) and to prime the temporal ring
// buffer and calibration baseline; it is drained eagerly during
// construction, mirroring the original's blocking startup sequence.
func NewHandler(cfg Config, primer FramePrimer) (*Handler, error) {
	total := cfg.Rows * cfg.Cols
	h := &Handler{cfg: cfg, total: total}

	if cfg.Convert && cfg.ConvertMode == ConvertDeltaR {
		r0, err := estimateR0Start(cfg, primer)
		if err != nil {
			return nil, fmt.Errorf("pressure: estimate R0_START: %w", err)
		}
		h.r0Start = r0
	}

	if cfg.SpatialFilter {
		h.spatial = newSpatialFilter(cfg.Rows, cfg.Cols, cfg.SpatialCutoff, cfg.SpatialWindow, cfg.ButterworthN)
	}

	if cfg.TemporalFilter {
		tf := newTemporalFilter(cfg.TemporalSize, cfg.TemporalKind, cfg.RWCutoff, total)
		for i := 0; i < cfg.TemporalSize-1; i++ {
			f, err := primer.NextRaw()
			if err != nil {
				return nil, fmt.Errorf("pressure: prime temporal filter: %w", err)
			}
			h.stage0(f)
			if h.spatial != nil {
				h.spatial.apply(f)
			}
			tf.prime(f)
		}
		h.temporal = tf
	}

	if cfg.CaliFrames > 0 && cfg.ConvertMode != ConvertDeltaR {
		cal := newCalibrator(cfg.CaliWinSize, cfg.CaliWinBufferSize, cfg.CaliThreshold, total)
		for i := 0; i < cfg.CaliFrames; i++ {
			f, err := primer.NextRaw()
			if err != nil {
				return nil, fmt.Errorf("pressure: prime calibration: %w", err)
			}
			h.stage0(f)
			if h.spatial != nil {
				h.spatial.apply(f)
			}
			if h.temporal != nil {
				h.temporal.apply(f)
			}
			cal.accumulate(f)
		}
		cal.finishPriming()
		h.cali = cal
	}

	return h, nil
}

// FramePrimer supplies the raw, unconverted frames needed at startup
// (R0_START estimation, temporal-filter priming, calibration baseline
// averaging). It is a thin adapter over frame.Source so this package never
// imports frame directly.
type FramePrimer interface {
	// NextRaw returns one frame exactly as produced by the frame source,
	// before masking or voltage/resistance conversion.
	NextRaw() ([]float64, error)
}

// Handle runs raw through every enabled stage in place. When cfg.Intermediate
// is not IntermediateNone, a copy of the signal at that tap point is written
// to intermediateOut (which must have length total).
func (h *Handler) Handle(raw []float64, intermediateOut []float64) {
	h.stage0(raw)
	if h.cfg.Intermediate == IntermediatePreFilter {
		copy(intermediateOut, raw)
	}

	if h.spatial != nil {
		h.spatial.apply(raw)
	}
	if h.cfg.Intermediate == IntermediatePostSpatial {
		copy(intermediateOut, raw)
	}

	if h.temporal != nil {
		h.temporal.apply(raw)
	}
	if h.cfg.Intermediate == IntermediatePostTemporal {
		copy(intermediateOut, raw)
	}

	if h.cali != nil {
		h.cali.apply(raw)
	}
}

// estimateR0Start skips the first frame produced by primer, then averages
// the reciprocal-converted resistance of the next r0AveTimes frames.
// Grounded on matsense/process/data_handler.py::cal_start_R0, which computes
// this by running calOppo_numpy_array and then negating the result again;
// the net effect (replicated here directly instead of round-tripping through
// a sign flip) is the plain reciprocal-conversion resistance, masked the
// same way stage0 masks, but computed before r0Start exists so it cannot go
// through the delta-R branch of stage0 (DESIGN.md Open Question 4).
const r0AveTimes = 10

func estimateR0Start(cfg Config, primer FramePrimer) ([]float64, error) {
	if _, err := primer.NextRaw(); err != nil {
		return nil, err
	}
	total := cfg.Rows * cfg.Cols
	sum := make([]float64, total)
	for i := 0; i < r0AveTimes; i++ {
		frame, err := primer.NextRaw()
		if err != nil {
			return nil, err
		}
		if cfg.Mask != nil {
			for j, m := range cfg.Mask {
				frame[j] *= m
			}
		}
		for j, v := range frame {
			var y float64
			if v < cfg.V0 {
				y = cfg.R0Reci * v / (cfg.V0 - v)
			}
			if y != 0 {
				sum[j] += 1 / y
			}
		}
	}
	for j := range sum {
		sum[j] /= r0AveTimes
	}
	return sum, nil
}
