// Package bus implements the shared frame buffer between the processing
// worker (C6) and the service worker (C7): a Go-native rendering of the
// original's process-shared memory (multiprocessing.Array/Value in
// matsense/server.py and matsense/serverkit/proc.py), chosen because this
// module runs both workers as goroutines rather than OS processes.
package bus

import "sync/atomic"

// Bus holds the most recently produced frame. Processing is the sole
// writer; the service worker and any other reader (e.g. a visualizer) only
// read. There is no locking: writes are plain bulk copies, and FrameIdx's
// atomic publish is the only synchronization. A reader that loads FrameIdx,
// copies Out/Raw/IMU, and gets a torn mix of frame k and k+1 is tolerated by
// design — the client contract is "a recent frame", not "a consistent
// snapshot".
type Bus struct {
	FrameIdx atomic.Int32

	Out []float64 // processed frame, row-major Rows*Cols
	Raw []float64 // raw (or intermediate-tap) frame, same shape as Out
	IMU [6]float64
}

// New allocates a Bus sized for a total-sample frame of the given length.
func New(total int) *Bus {
	return &Bus{
		Out: make([]float64, total),
		Raw: make([]float64, total),
	}
}

// Publish bulk-copies out and raw into the bus and then advances FrameIdx,
// in that order, so that any reader observing the new FrameIdx value is
// guaranteed the copies were at least in flight before the publish — not
// that they've completed, which is the torn-read tradeoff this bus accepts.
func (b *Bus) Publish(out, raw []float64, imu [6]float64, idx int32) {
	copy(b.Out, out)
	copy(b.Raw, raw)
	b.IMU = imu
	b.FrameIdx.Store(idx)
}

// Snapshot copies the current Out/Raw/IMU into the caller-provided buffers
// and returns the FrameIdx observed once the copy is done. Reading FrameIdx
// last (rather than first) means a concurrent Publish can only make the
// returned index equal to or one ahead of the copied contents, never
// behind — the "frame_idx may be at most one frame ahead of the buffer
// contents" tradeoff this bus accepts instead of locking. outDst and rawDst
// must be pre-sized to match the Bus's frame length.
func (b *Bus) Snapshot(outDst, rawDst []float64) (imu [6]float64, frameIdx int32) {
	copy(outDst, b.Out)
	copy(rawDst, b.Raw)
	imu = b.IMU
	frameIdx = b.FrameIdx.Load()
	return imu, frameIdx
}
