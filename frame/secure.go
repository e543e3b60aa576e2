package frame

import (
	"encoding/binary"
	"io"
	"log"
	"sync"
	"time"
)

const (
	secureHead   = 0x5B
	secureTail   = 0x5D
	secureEscape = 0x5C

	escapeEscape = 0x00
	escapeHead   = 0x01
	escapeTail   = 0x02
)

// SecureSource reads the byte-stuffed serial protocol: 0x5B opens a frame,
// 0x5D closes it, and 0x5C escapes the three reserved bytes so that sensor
// payload data can never be mistaken for framing. An out-of-band escape byte
// is logged and the offending byte is dropped rather than aborting the
// frame, matching the simple source's "discard and resync" policy.
type SecureSource struct {
	total   int
	imu     bool
	rx      chan byte
	readErr chan error
	frames  chan secureFrame
	closeMu sync.Mutex
	closed  bool
	closer  io.Closer
	timeout time.Duration
}

type secureFrame struct {
	data []byte
}

// NewSecureSource wraps r with the byte-stuffed framing. When withIMU is
// true, every decoded frame is expected to carry 12 trailing bytes (six
// little-endian int16 IMU values) after the total pressure bytes.
func NewSecureSource(r io.Reader, closer io.Closer, total int, withIMU bool, timeout time.Duration) *SecureSource {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &SecureSource{
		total:   total,
		imu:     withIMU,
		rx:      make(chan byte, 4*(total+12)),
		readErr: make(chan error, 1),
		frames:  make(chan secureFrame, 2),
		closer:  closer,
		timeout: timeout,
	}
	go s.reader(r)
	go s.framer()
	return s
}

func (s *SecureSource) reader(r io.Reader) {
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			s.rx <- buf[i]
		}
		if err != nil {
			s.readErr <- err
			return
		}
	}
}

func (s *SecureSource) wantLen() int {
	if s.imu {
		return s.total + 12
	}
	return s.total
}

func (s *SecureSource) framer() {
	var data []byte
	inFrame := false
	escaping := false

	for b := range s.rx {
		switch {
		case !inFrame:
			if b == secureHead {
				inFrame = true
				escaping = false
				data = make([]byte, 0, s.wantLen()+4)
			}
			// bytes outside a frame are simply noise between frames.
		case escaping:
			escaping = false
			switch b {
			case escapeEscape:
				data = append(data, secureEscape)
			case escapeHead:
				data = append(data, secureHead)
			case escapeTail:
				data = append(data, secureTail)
			default:
				log.Printf("frame: secure protocol: unknown escape byte 0x%02x, skipped", b)
			}
		case b == secureEscape:
			escaping = true
		case b == secureTail:
			if len(data) == s.wantLen() {
				s.frames <- secureFrame{data: data}
			} else {
				log.Printf("frame: secure protocol: discarded frame of length %d, want %d", len(data), s.wantLen())
			}
			inFrame = false
		case b == secureHead:
			// Unescaped start-of-frame inside a frame: the previous frame
			// was never closed. Restart from here.
			data = make([]byte, 0, s.wantLen()+4)
		default:
			data = append(data, b)
		}
	}
}

// Fetch implements Source.
func (s *SecureSource) Fetch(rawOut []float64, imuOut []int16) (Tags, error) {
	select {
	case f := <-s.frames:
		for i := 0; i < s.total; i++ {
			rawOut[i] = float64(f.data[i])
		}
		if s.imu && imuOut != nil {
			for i := 0; i < 6; i++ {
				imuOut[i] = int16(binary.LittleEndian.Uint16(f.data[s.total+2*i : s.total+2*i+2]))
			}
		}
		return Tags{}, nil
	case err := <-s.readErr:
		return Tags{}, err
	case <-time.After(s.timeout):
		return Tags{}, ErrTimeout
	}
}

// Close implements Source.
func (s *SecureSource) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
