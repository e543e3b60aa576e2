package frame

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"
)

// baudFlags maps the handful of rates this sensor family actually ships
// with onto the termios CFlag constants goserial exposes. Anything else is
// rejected rather than silently rounded to the nearest supported rate.
var baudFlags = map[int]serial.CFlag{
	9600:    serial.B9600,
	19200:   serial.B19200,
	38400:   serial.B38400,
	57600:   serial.B57600,
	115200:  serial.B115200,
	230400:  serial.B230400,
	460800:  serial.B460800,
	500000:  serial.B500000,
	921600:  serial.B921600,
	1000000: serial.B1000000,
}

// OpenSerial opens device in raw 8-N-1 mode at baud and returns a Port ready
// to be wrapped by NewSimpleSource or NewSecureSource. readTimeout bounds a
// single Read call; frame-level timeouts are layered on top by the Source.
func OpenSerial(device string, baud int, readTimeout time.Duration) (*serial.Port, error) {
	flag, ok := baudFlags[baud]
	if !ok {
		return nil, fmt.Errorf("frame: unsupported baud rate %d", baud)
	}

	opts := serial.NewOptions().SetReadTimeout(readTimeout)
	port, err := serial.Open(device, opts)
	if err != nil {
		return nil, fmt.Errorf("frame: open %s: %w", device, err)
	}

	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("frame: get attrs on %s: %w", device, err)
	}
	attrs.MakeRaw()
	attrs.Cflag &^= serial.CBAUD | serial.CSIZE | serial.CSTOPB | serial.PARENB
	attrs.Cflag |= flag | serial.CS8 | serial.CREAD | serial.CLOCAL
	attrs.SetSpeed(flag)

	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("frame: set attrs on %s: %w", device, err)
	}

	return port, nil
}
