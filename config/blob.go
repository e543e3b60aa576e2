package config

import (
	"fmt"

	"github.com/atomiechen/MatSense/blob"
)

// BlobParser builds a blob.Parser from a normalized Config, or nil if
// process.blob is unset/false.
func BlobParser(c Config) (*blob.Parser, error) {
	if !boolVal(c.Process.Blob) {
		return nil, nil
	}
	if len(c.Process.Interp) != 2 {
		return nil, fmt.Errorf("config: process.interp not normalized")
	}
	rows, cols := c.Process.Interp[0], c.Process.Interp[1]
	return blob.NewParser(rows, cols, floatVal(c.Process.Threshold), intVal(c.Process.BlobNum),
		true, boolVal(c.Process.SpecialCheck)), nil
}

// Interpolator builds a blob.Interpolator from a normalized Config, or nil
// if process.interp matches sensor.shape (no resampling needed).
func Interpolator(c Config) (*blob.Interpolator, error) {
	if len(c.Sensor.Shape) != 2 || len(c.Process.Interp) != 2 {
		return nil, fmt.Errorf("config: sensor.shape/process.interp not normalized")
	}
	srcRows, srcCols := c.Sensor.Shape[0], c.Sensor.Shape[1]
	dstRows, dstCols := c.Process.Interp[0], c.Process.Interp[1]
	if srcRows == dstRows && srcCols == dstCols {
		return nil, nil
	}
	return blob.NewInterpolator(srcRows, srcCols, dstRows, dstCols, intVal(c.Process.InterpOrder)), nil
}
