package blob

import "math"

// Parser finds at most maxBlobs connected above-threshold regions in a
// frame and reports the weighted centroid and peak-relative value of the
// one region the caller actually wants. Grounded on
// matsense/process/blob_parser.py (BlobParser): a working copy of the frame
// is mutated in place, each discovered blob's pixels are sunk below the
// admission threshold so the next argmax can't re-select them, and a
// hardware-specific column-edge reselection quirk (special_check) is
// preserved unchanged.
type Parser struct {
	rows, cols   int
	threshold    float64
	maxBlobs     int
	normalize    bool
	specialCheck bool

	data []float64 // working copy, mutated per Parse call
	flag []int     // -1 unvisited, else the blob id that claimed the cell
	queue []int

	selectedBlob int // blob id chosen by the most recent Parse, -1 if none
}

// NewParser builds a parser for rows×cols frames.
func NewParser(rows, cols int, threshold float64, maxBlobs int, normalize, specialCheck bool) *Parser {
	return &Parser{
		rows: rows, cols: cols,
		threshold: threshold, maxBlobs: maxBlobs,
		normalize: normalize, specialCheck: specialCheck,
		data: make([]float64, rows*cols),
		flag: make([]int, rows*cols),
	}
}

// Parse locates blobs in frame (row-major rows*cols) and returns the
// selected one's weighted row, column, and peak-relative value. found is
// false when no blob qualifies (below threshold, or special_check rejected
// every candidate).
func (p *Parser) Parse(frame []float64) (row, col, value float64, found bool) {
	copy(p.data, frame)
	for i := range p.flag {
		p.flag[i] = -1
	}

	calThreshold := p.threshold * 0.5
	control := p.threshold

	centers := make([]blobCenter, 0, p.maxBlobs)
	values := make([]float64, 0, p.maxBlobs)

	for len(centers) < p.maxBlobs {
		idx, maxVal := p.argmax()
		if maxVal <= math.Max(control, p.threshold) {
			break
		}
		control = maxVal * 0.5
		blobIdx := len(centers)
		r, c := p.flood(idx/p.cols, idx%p.cols, calThreshold, control, blobIdx)
		centers = append(centers, blobCenter{r, c})
		values = append(values, maxVal-p.threshold)
	}

	if len(centers) == 0 {
		p.selectedBlob = -1
		return 0, 0, 0, false
	}

	selected := 0
	if p.specialCheck {
		selected = p.selectSpecial(centers)
	}
	p.selectedBlob = selected
	if selected < 0 {
		return 0, 0, 0, false
	}

	row, col, value = centers[selected].r, centers[selected].c, values[selected]
	if p.normalize {
		row /= float64(p.rows - 1)
		col /= float64(p.cols - 1)
	}
	return row, col, value, true
}

// blobCenter is a blob's weighted centroid, in raw (unnormalized) grid
// coordinates.
type blobCenter struct{ r, c float64 }

// selectSpecial implements the hardware-specific reselection: if the
// first-found blob sits within 6% of the left edge, look for a later blob
// within 7% of the right edge and prefer it; otherwise report no blob.
func (p *Parser) selectSpecial(centers []blobCenter) int {
	if centers[0].c > 0.06*float64(p.cols-1) {
		return 0
	}
	for i := 1; i < len(centers); i++ {
		if centers[i].c >= 0.93*float64(p.cols-1) {
			return i
		}
	}
	return -1
}

func (p *Parser) argmax() (idx int, val float64) {
	val = p.data[0]
	for i, v := range p.data {
		if v > val {
			val = v
			idx = i
		}
	}
	return idx, val
}

// flood performs a 4-neighbor BFS from (row,col), admitting cells whose
// value is at least admitThreshold, and accumulating a weighted centroid
// over cells whose value is at least control (frozen for this call, unlike
// admitThreshold which stays the same for every blob this frame).
func (p *Parser) flood(row, col int, admitThreshold, control float64, blobIdx int) (float64, float64) {
	p.queue = p.queue[:0]
	start := row*p.cols + col
	p.queue = append(p.queue, start)
	p.flag[start] = blobIdx

	var rSum, cSum, wSum float64
	for len(p.queue) > 0 {
		cur := p.queue[0]
		p.queue = p.queue[1:]
		curR, curC := cur/p.cols, cur%p.cols
		curVal := p.data[cur]
		p.data[cur] = admitThreshold - 1

		if curVal >= control {
			rSum += curVal * float64(curR)
			cSum += curVal * float64(curC)
			wSum += curVal
		}

		p.checkAdmit(curR, curC-1, admitThreshold, blobIdx)
		p.checkAdmit(curR, curC+1, admitThreshold, blobIdx)
		p.checkAdmit(curR-1, curC, admitThreshold, blobIdx)
		p.checkAdmit(curR+1, curC, admitThreshold, blobIdx)
	}

	if wSum > 0 {
		return rSum / wSum, cSum / wSum
	}
	// The seed cell alone always satisfies curVal >= control for
	// non-negative frames, so this only triggers on malformed input.
	return float64(row), float64(col)
}

func (p *Parser) checkAdmit(row, col int, admitThreshold float64, blobIdx int) {
	if row < 0 || row >= p.rows || col < 0 || col >= p.cols {
		return
	}
	idx := row*p.cols + col
	if p.flag[idx] != -1 {
		return
	}
	if p.data[idx] >= admitThreshold {
		p.queue = append(p.queue, idx)
		p.flag[idx] = blobIdx
	}
}

// Transform zeroes dst, then for the selected blob's cells whose raw input
// exceeds threshold, writes input-threshold. Call Parse first; Transform
// reuses its flag grid and the original (unmutated) values in frame.
func (p *Parser) Transform(frame, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	selected, ok := p.lastSelected()
	if !ok {
		return
	}
	for i, v := range frame {
		if p.flag[i] == selected && v > p.threshold {
			dst[i] = v - p.threshold
		}
	}
}

// lastSelected is a placeholder hook: Transform is only meaningful
// immediately after Parse, and callers that need it call Parse then
// Transform with the same frame. Kept as a tiny seam so a future caller
// wanting Transform without re-running Parse has somewhere to plug in.
func (p *Parser) lastSelected() (int, bool) {
	return p.selectedBlob, p.selectedBlob >= 0
}
