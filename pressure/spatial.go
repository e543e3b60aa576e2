package pressure

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpatialWindow selects the frequency-domain kernel shape for the spatial
// low-pass filter.
type SpatialWindow int

const (
	WindowIdeal SpatialWindow = iota
	WindowButterworth
	WindowGaussian
)

// spatialFilter runs a 2-D real low-pass filter over an R×C frame by
// composing two 1-D gonum FFTs (row-wise real, column-wise complex) rather
// than a hand-rolled DFT — the kernel and multiply-by-mask step are
// otherwise a direct port of matsense/process/data_handler.py::spatial_filter.
type spatialFilter struct {
	rows, cols int
	halfCols   int // cols/2 + 1, the real-FFT spectrum width

	rowFFT *fourier.FFT
	colFFT *fourier.CmplxFFT

	mask []float64 // rows * halfCols, row-major

	// scratch, reused across frames to avoid per-frame allocation
	rowSpectra []complex128 // rows * halfCols
	colBuf     []complex128
	rowBuf     []float64
}

func newSpatialFilter(rows, cols int, cutoff float64, window SpatialWindow, order int) *spatialFilter {
	halfCols := cols/2 + 1
	s := &spatialFilter{
		rows:       rows,
		cols:       cols,
		halfCols:   halfCols,
		rowFFT:     fourier.NewFFT(cols),
		colFFT:     fourier.NewCmplxFFT(rows),
		mask:       make([]float64, rows*halfCols),
		rowSpectra: make([]complex128, rows*halfCols),
		colBuf:     make([]complex128, rows),
		rowBuf:     make([]float64, cols),
	}
	s.buildMask(cutoff, window, order)
	return s
}

// buildMask fills s.mask per SPEC_FULL.md §4.2 Stage 1: distances wrap on
// the row axis for i > R/2 to reflect the DFT's row symmetry; the column
// axis never wraps because halfCols already is the half-spectrum width.
func (s *spatialFilter) buildMask(cutoff float64, window SpatialWindow, order int) {
	for i := 0; i < s.rows; i++ {
		var rowDist float64
		if i <= s.rows/2 {
			rowDist = float64(i)
		} else {
			rowDist = float64(s.rows - i)
		}
		for j := 0; j < s.halfCols; j++ {
			d := math.Hypot(rowDist, float64(j))
			s.mask[i*s.halfCols+j] = windowValue(window, d, cutoff, order)
		}
	}
}

func windowValue(window SpatialWindow, d, cutoff float64, order int) float64 {
	switch window {
	case WindowButterworth:
		return 1 / (1 + math.Pow(d/cutoff, float64(2*order)))
	case WindowGaussian:
		return math.Exp(-d * d / (2 * cutoff * cutoff))
	default: // WindowIdeal
		if d <= cutoff {
			return 1
		}
		return 0
	}
}

// apply runs the forward FFT, multiplies by the precomputed mask, and runs
// the inverse FFT, overwriting frame (row-major R×C) in place.
func (s *spatialFilter) apply(frame []float64) {
	// Row-wise real forward FFT.
	for i := 0; i < s.rows; i++ {
		row := frame[i*s.cols : (i+1)*s.cols]
		spectrum := s.rowFFT.Coefficients(nil, row)
		copy(s.rowSpectra[i*s.halfCols:(i+1)*s.halfCols], spectrum)
	}

	// Column-wise complex forward FFT, mask multiply, inverse.
	for j := 0; j < s.halfCols; j++ {
		for i := 0; i < s.rows; i++ {
			s.colBuf[i] = s.rowSpectra[i*s.halfCols+j]
		}
		colSpectrum := s.colFFT.Coefficients(nil, s.colBuf)
		for i := range colSpectrum {
			colSpectrum[i] *= complex(s.mask[i*s.halfCols+j], 0)
		}
		colInverse := s.colFFT.Sequence(nil, colSpectrum)
		for i := 0; i < s.rows; i++ {
			s.rowSpectra[i*s.halfCols+j] = colInverse[i]
		}
	}

	// Row-wise real inverse FFT.
	for i := 0; i < s.rows; i++ {
		spectrum := s.rowSpectra[i*s.halfCols : (i+1)*s.halfCols]
		out := s.rowFFT.Sequence(s.rowBuf, spectrum)
		copy(frame[i*s.cols:(i+1)*s.cols], out)
	}

	// gonum's fourier.FFT/CmplxFFT round trips are unnormalized: the row
	// real-FFT round trip scales by cols and the column complex-FFT round
	// trip scales by rows, so a unit mask must still divide out rows*cols
	// to match numpy's irfft2(rfft2(x)) == x.
	scale := 1 / float64(s.rows*s.cols)
	for i := range frame {
		frame[i] *= scale
	}
}
