// Package blob upsamples a processed pressure frame and localizes the
// single dominant contact region on it.
//
// Grounded on matsense/process/interpolator.py (zoom via scipy.ndimage) and
// matsense/process/blob_parser.py (flood-fill blob detection). No pack
// dependency offers an image-resampling or connected-component library at
// this module's scale, so both stages are hand-written against math only
// (see DESIGN.md).
package blob

// Interpolator resamples an R×C frame to R'×C'. Order 0 is nearest-
// neighbor, order 1 is bilinear; higher orders fall back to bilinear, which
// is a reasonable stand-in for the cubic spline scipy.ndimage.zoom defaults
// to, without pulling in a full spline-fitting dependency for a single call
// site.
type Interpolator struct {
	srcRows, srcCols int
	dstRows, dstCols int
	order            int
}

// NewInterpolator builds a resampler from (srcRows,srcCols) to
// (dstRows,dstCols).
func NewInterpolator(srcRows, srcCols, dstRows, dstCols, order int) *Interpolator {
	return &Interpolator{srcRows: srcRows, srcCols: srcCols, dstRows: dstRows, dstCols: dstCols, order: order}
}

// NoOp reports whether the target shape equals the source shape, in which
// case Apply is the identity.
func (in *Interpolator) NoOp() bool {
	return in.srcRows == in.dstRows && in.srcCols == in.dstCols
}

// Apply resamples src (row-major srcRows*srcCols) into dst (row-major
// dstRows*dstCols, pre-sized by the caller).
func (in *Interpolator) Apply(src, dst []float64) {
	if in.NoOp() {
		copy(dst, src)
		return
	}

	rowScale := float64(in.srcRows) / float64(in.dstRows)
	colScale := float64(in.srcCols) / float64(in.dstCols)

	for r := 0; r < in.dstRows; r++ {
		sr := (float64(r) + 0.5) * rowScale - 0.5
		for c := 0; c < in.dstCols; c++ {
			sc := (float64(c) + 0.5) * colScale - 0.5
			dst[r*in.dstCols+c] = in.sample(src, sr, sc)
		}
	}
}

func (in *Interpolator) sample(src []float64, sr, sc float64) float64 {
	if in.order == 0 {
		r := clampInt(round(sr), 0, in.srcRows-1)
		c := clampInt(round(sc), 0, in.srcCols-1)
		return src[r*in.srcCols+c]
	}

	r0 := clampInt(int(floor(sr)), 0, in.srcRows-1)
	r1 := clampInt(r0+1, 0, in.srcRows-1)
	c0 := clampInt(int(floor(sc)), 0, in.srcCols-1)
	c1 := clampInt(c0+1, 0, in.srcCols-1)

	fr := sr - floor(sr)
	fc := sc - floor(sc)
	if fr < 0 {
		fr = 0
	}
	if fc < 0 {
		fc = 0
	}

	v00 := src[r0*in.srcCols+c0]
	v01 := src[r0*in.srcCols+c1]
	v10 := src[r1*in.srcCols+c0]
	v11 := src[r1*in.srcCols+c1]

	top := v00 + (v01-v00)*fc
	bot := v10 + (v11-v10)*fc
	return top + (bot-top)*fr
}

func floor(v float64) float64 {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return float64(i)
}

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
