package config

import (
	"fmt"

	"github.com/atomiechen/MatSense/pressure"
)

// PressureConfig translates a normalized Config into a pressure.Config.
// Callers must have run Normalize first. boolVal/floatVal/intVal read a nil
// pointer as the zero value, so c is expected to have been merged over
// Defaults() (which fills every field from blank_template.yaml).
func PressureConfig(c Config) (pressure.Config, error) {
	var pc pressure.Config

	if c.Sensor.Total == nil {
		return pressure.Config{}, fmt.Errorf("config: sensor.total not set (run Normalize)")
	}
	if len(c.Sensor.Shape) != 2 {
		return pressure.Config{}, fmt.Errorf("config: sensor.shape not normalized")
	}
	pc.Rows, pc.Cols = c.Sensor.Shape[0], c.Sensor.Shape[1]

	if c.Sensor.Mask != "" {
		mask, err := ParseMask(c.Sensor.Mask)
		if err != nil {
			return pressure.Config{}, fmt.Errorf("config: sensor.mask: %w", err)
		}
		pc.Mask = mask
	}

	pc.Convert = boolVal(c.Process.Convert)
	switch {
	case boolVal(c.Process.ResiOpposite):
		pc.ConvertMode = pressure.ConvertOpposite
	case boolVal(c.Process.ResiDelta):
		pc.ConvertMode = pressure.ConvertDeltaR
	default:
		pc.ConvertMode = pressure.ConvertReciprocal
	}

	if c.Process.V0 != nil {
		v0, err := EvalExpr(*c.Process.V0)
		if err != nil {
			return pressure.Config{}, fmt.Errorf("config: process.V0: %w", err)
		}
		pc.V0 = v0
	}
	pc.R0Reci = floatVal(c.Process.R0Reci)

	window, enabled, err := spatialWindowOf(c.Process.FilterSpatial)
	if err != nil {
		return pressure.Config{}, err
	}
	pc.SpatialFilter = enabled
	pc.SpatialWindow = window
	pc.SpatialCutoff = floatVal(c.Process.FilterSpatialCutoff)
	pc.ButterworthN = intVal(c.Process.ButterworthOrder)

	kind, temporalEnabled, err := temporalKindOf(c.Process.FilterTemporal)
	if err != nil {
		return pressure.Config{}, err
	}
	pc.TemporalFilter = temporalEnabled
	pc.TemporalKind = kind
	pc.TemporalSize = intVal(c.Process.FilterTemporalSize)
	pc.RWCutoff = floatVal(c.Process.RWCutoff)

	pc.CaliFrames = intVal(c.Process.CaliFrames)
	pc.CaliWinSize = intVal(c.Process.CaliWinSize)
	pc.CaliWinBufferSize = intVal(c.Process.CaliWinBufferSize)
	pc.CaliThreshold = floatVal(c.Process.CaliThreshold)

	if c.Process.Intermediate != nil {
		pc.Intermediate = pressure.Intermediate(*c.Process.Intermediate)
	} else {
		pc.Intermediate = pressure.IntermediateNone
	}

	return pc, nil
}

// spatialWindowOf maps process.filter_spatial's string enum to a
// pressure.SpatialWindow plus whether the filter is enabled at all ("none"
// disables it; pressure.Config has no WindowNone member of its own).
func spatialWindowOf(v *string) (pressure.SpatialWindow, bool, error) {
	if v == nil {
		return pressure.WindowIdeal, false, nil
	}
	switch *v {
	case "none", "":
		return pressure.WindowIdeal, false, nil
	case "ideal":
		return pressure.WindowIdeal, true, nil
	case "butterworth":
		return pressure.WindowButterworth, true, nil
	case "gaussian":
		return pressure.WindowGaussian, true, nil
	default:
		return pressure.WindowIdeal, false, fmt.Errorf("config: process.filter_spatial: invalid value %q", *v)
	}
}

// temporalKindOf maps process.filter_temporal's string enum to a
// pressure.TemporalKind plus whether the filter is enabled at all.
func temporalKindOf(v *string) (pressure.TemporalKind, bool, error) {
	if v == nil {
		return pressure.TemporalMovingAverage, false, nil
	}
	switch *v {
	case "none", "":
		return pressure.TemporalMovingAverage, false, nil
	case "moving_average":
		return pressure.TemporalMovingAverage, true, nil
	case "rectangular_window":
		return pressure.TemporalWindowedSinc, true, nil
	default:
		return pressure.TemporalMovingAverage, false, fmt.Errorf("config: process.filter_temporal: invalid value %q", *v)
	}
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
