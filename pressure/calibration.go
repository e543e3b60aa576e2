package pressure

// calibrator implements the rolling-window zero calibration in
// SPEC_FULL.md §4.2 Stage 3: a filtered frame has the current baseline
// subtracted, and is itself a candidate to update that baseline unless it
// looks like a real touch ("hot"). Grounded on
// matsense/process/data_handler.py::prepare_cali/calibrate.
type calibrator struct {
	total int

	dataZero []float64

	winSize int       // W
	dataWin []float64 // W * total, ring buffer of admitted frames
	head    int

	admissionCap int        // K
	admission    [][]float64 // FIFO of candidate frames awaiting promotion
	needClean    bool

	threshold float64

	sum   []float64 // accumulator used only while priming
	count int
}

func newCalibrator(winSize, admissionCap int, threshold float64, total int) *calibrator {
	c := &calibrator{
		total:        total,
		dataZero:     make([]float64, total),
		winSize:      winSize,
		threshold:    threshold,
		admissionCap: admissionCap,
		sum:          make([]float64, total),
	}
	if winSize > 0 {
		c.dataWin = make([]float64, winSize*total)
	}
	return c
}

// accumulate folds one post-filter priming frame into the average that will
// become the initial data_zero. Call exactly caliFrames times before
// finishPriming.
func (c *calibrator) accumulate(frame []float64) {
	for i, v := range frame {
		c.sum[i] += v
	}
	c.count++
}

// finishPriming computes data_zero and seeds the window/admission buffers
// with it, matching prepare_cali seeding every slot with the initial zero.
func (c *calibrator) finishPriming() {
	for i := range c.dataZero {
		c.dataZero[i] = c.sum[i] / float64(c.count)
	}
	for slot := 0; slot < c.winSize; slot++ {
		copy(c.dataWin[slot*c.total:(slot+1)*c.total], c.dataZero)
	}
	for len(c.admission) < c.admissionCap {
		seed := make([]float64, c.total)
		copy(seed, c.dataZero)
		c.admission = append(c.admission, seed)
	}
}

// apply subtracts the current baseline from frame (clamped at zero) and, if
// dynamic calibration is enabled (winSize > 0), runs the admission-gate
// update of §4.2 Stage 3.
func (c *calibrator) apply(frame []float64) {
	stored := make([]float64, c.total)
	copy(stored, frame)

	for i := range frame {
		v := frame[i] - c.dataZero[i]
		if v < 0 {
			v = 0
		}
		frame[i] = v
	}

	if c.winSize <= 0 {
		return
	}

	hot := false
	for i := range stored {
		if stored[i]-c.dataZero[i] > c.threshold {
			hot = true
			break
		}
	}

	if hot {
		if len(c.admission) >= c.admissionCap {
			c.admission = c.admission[:0]
		}
		c.needClean = true
		return
	}

	switch {
	case len(c.admission) < c.admissionCap:
		c.admission = append(c.admission, stored)
	case c.needClean:
		c.admission = c.admission[:0]
		c.needClean = false
		c.admission = append(c.admission, stored)
	default:
		cur := c.admission[0]
		c.admission = append(c.admission[1:], stored)
		base := c.head * c.total
		for i := 0; i < c.total; i++ {
			c.dataZero[i] += (cur[i] - c.dataWin[base+i]) / float64(c.winSize)
			c.dataWin[base+i] = cur[i]
		}
		c.head = (c.head + 1) % c.winSize
	}
}
