package service

import (
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/higebu/netfd"
)

const defaultBufSize = 8192

// defaultUDPAddress and defaultUnixPath match the reference implementation's
// SERVER_IPADDR/SERVER_FILE defaults.
const (
	defaultUDPAddress = "localhost:25530"
	defaultUnixPath   = "/var/tmp/unix.socket.server"
)

// NewTransport opens the server's listening socket per addr/udp: a UNIX
// domain datagram socket unless udp is true or the platform doesn't support
// AF_UNIX, in which case it falls back to UDP (SPEC_FULL.md §6). frameSize
// is total*8 bytes, used to size the socket's buffers.
func NewTransport(addr string, udp bool, frameSize int) (*Transport, error) {
	var (
		t   *Transport
		err error
	)

	if udp {
		if addr == "" {
			addr = defaultUDPAddress
		}
		t, err = listenUDP(addr)
	} else {
		path := addr
		if path == "" {
			path = defaultUnixPath
		}
		t, err = listenUnixgram(path)
		if err != nil {
			// Platforms without AF_UNIX support fall back to UDP.
			t, err = listenUDP(defaultUDPAddress)
		}
	}
	if err != nil {
		return nil, err
	}

	if terr := t.tuneBuffers(frameSize); terr != nil {
		t.Close()
		return nil, terr
	}
	return t, nil
}

// Transport is the datagram socket the Service Worker listens on.
type Transport struct {
	conn     net.PacketConn
	unixPath string // non-empty when listening on a UNIX datagram socket
}

// listenUDP binds a UDP socket at addr ("host:port").
func listenUDP(addr string) (*Transport, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("service: listen udp %s: %w", addr, err)
	}
	return &Transport{conn: pc}, nil
}

// listenUnixgram binds a UNIX domain datagram socket at path, removing any
// stale socket file left behind by a previous run.
func listenUnixgram(path string) (*Transport, error) {
	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("service: resolve unixgram %s: %w", path, err)
	}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("service: listen unixgram %s: %w", path, err)
	}
	return &Transport{conn: conn, unixPath: path}, nil
}

// tuneBuffers sizes the socket's send/receive buffers via the raw file
// descriptor recovered through netfd.GetFdFromConn, so a reply datagram
// carrying a full total×f64 frame never gets truncated by the OS default.
// Grounded on the socket-stats exporter's own use of netfd to reach into a
// net.Conn it did not construct.
func (t *Transport) tuneBuffers(frameSize int) error {
	conn, ok := t.conn.(net.Conn)
	if !ok {
		return nil
	}
	fd := netfd.GetFdFromConn(conn)
	size := frameSize * 2
	if size < defaultBufSize {
		size = defaultBufSize
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, size); err != nil {
		return fmt.Errorf("service: set SO_SNDBUF: %w", err)
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, size); err != nil {
		return fmt.Errorf("service: set SO_RCVBUF: %w", err)
	}
	return nil
}

// Close closes the socket, unlinking the UNIX-domain socket file if one was
// bound.
func (t *Transport) Close() error {
	err := t.conn.Close()
	if t.unixPath != "" {
		_ = os.Remove(t.unixPath)
	}
	return err
}
