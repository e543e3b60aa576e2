package worker

import (
	"errors"

	"github.com/atomiechen/MatSense/frame"
)

// sourcePrimer adapts a frame.Source to pressure.FramePrimer by retrying
// past transient ErrTimeout results — matching the reference
// implementation's startup sequence, where priming simply keeps pulling
// from the frame generator until a usable frame shows up.
type sourcePrimer struct {
	src   frame.Source
	total int
	imu   []int16
}

func newSourcePrimer(src frame.Source, total int) *sourcePrimer {
	return &sourcePrimer{src: src, total: total, imu: make([]int16, 6)}
}

func (p *sourcePrimer) NextRaw() ([]float64, error) {
	buf := make([]float64, p.total)
	for {
		_, err := p.src.Fetch(buf, p.imu)
		if err == nil {
			return buf, nil
		}
		if errors.Is(err, frame.ErrTimeout) || errors.Is(err, frame.ErrInvalidFrame) {
			continue
		}
		return nil, err
	}
}
