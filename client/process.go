package client

import (
	"github.com/atomiechen/MatSense/blob"
	"github.com/atomiechen/MatSense/config"
)

// Processor upsamples a fetched frame and optionally localizes the dominant
// contact blob on it, the same post-fetch step the reference implementation
// applies client-side (matsense/process/processor.py's Processor, driven
// from matsense/client.py before handing frames to a visualizer) rather than
// inside the server's own pipeline.
type Processor struct {
	interp *blob.Interpolator // nil when interp shape equals sensor shape
	parser *blob.Parser       // nil when blob detection is disabled

	interpBuf []float64
}

// NewProcessor builds a Processor from a normalized Config. rows/cols is the
// interpolated frame shape (c.Process.Interp if the config enables it,
// otherwise the sensor's own shape).
func NewProcessor(c config.Config) (*Processor, error) {
	interp, err := config.Interpolator(c)
	if err != nil {
		return nil, err
	}
	parser, err := config.BlobParser(c)
	if err != nil {
		return nil, err
	}

	rows, cols := c.Sensor.Shape[0], c.Sensor.Shape[1]
	if len(c.Process.Interp) == 2 {
		rows, cols = c.Process.Interp[0], c.Process.Interp[1]
	}

	return &Processor{
		interp:    interp,
		parser:    parser,
		interpBuf: make([]float64, rows*cols),
	}, nil
}

// Blob is the localized contact region reported by Transform, in the
// interpolated frame's coordinate space. Row/Col are normalized to [0, 1]
// when the underlying blob.Parser was built with normalize=true.
type Blob struct {
	Row, Col, Value float64
	Found           bool
}

// Transform upsamples frame (the sensor's own shape) and, if blob detection
// is enabled, locates the dominant contact region on the result. interp is
// the upsampled frame (equal to frame, copied, when no resampling is
// configured); b is the zero value with Found=false when blob detection is
// disabled or no qualifying region was found.
func (p *Processor) Transform(frame []float64) (interp []float64, b Blob) {
	if p.interp != nil {
		p.interp.Apply(frame, p.interpBuf)
	} else {
		copy(p.interpBuf, frame)
	}

	if p.parser == nil {
		return p.interpBuf, Blob{}
	}

	row, col, value, found := p.parser.Parse(p.interpBuf)
	return p.interpBuf, Blob{Row: row, Col: col, Value: value, Found: found}
}
