// Package frame produces raw sensor frames from a serial link, a recorded
// CSV file, or a debug stub. All three share the same Source interface so
// the worker loop that drives them never needs to know which one it holds.
package frame

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Fetch when no frame arrived within the source's
// configured timeout. It is transient: callers should retry.
var ErrTimeout = errors.New("frame: read timeout")

// ErrFileEnd is returned by the file source once its last file is exhausted.
// It is terminal.
var ErrFileEnd = errors.New("frame: end of file source")

// ErrInvalidFrame marks a frame that was discarded because it decoded to the
// wrong length or hit a malformed escape sequence. Non-terminal: the decoder
// resynchronizes and keeps reading.
var ErrInvalidFrame = errors.New("frame: invalid frame")

// Tags carries the out-of-band values that ride along with a frame: a
// monotonic index and a capture timestamp. File sources pass these through
// from the recording; live and debug sources return zero Tags.
type Tags struct {
	Index     int32
	TimestampUs int64
}

// Source produces one raw frame per Fetch call. rawOut must have length
// total (R*C). Serial sources fill it with the 0..255 ADC byte values widened
// to float64; the file source fills it directly from recorded floats — both
// representations feed the same downstream Handle(raw []float64, ...) stage.
// imuOut, when non-nil, receives six signed 16-bit IMU values (gyro/accel
// triplets) if the source carries IMU data.
type Source interface {
	// Fetch blocks until a frame is available, a transient error occurs
	// (ErrTimeout, ErrInvalidFrame), or the source is exhausted (ErrFileEnd).
	Fetch(rawOut []float64, imuOut []int16) (Tags, error)
	Close() error
}

// defaultTimeout is used by sources that take no explicit timeout.
const defaultTimeout = 2 * time.Second
