package client

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"
)

const (
	defaultUDPServerAddress = "localhost:25530"
	defaultUnixServerPath   = "/var/tmp/unix.socket.server"
	defaultUnixClientPrefix = "/var/tmp/unix.socket.client"
	defaultTimeout          = 100 * time.Millisecond
	defaultBufSize          = 65536
	bindAttempts            = 16
)

// dial opens and binds the client's own datagram socket, mirroring
// matsense/uclient.py's Uclient.init_socket: a UDP socket bound to a free
// port chosen by the OS, or a UNIX domain datagram socket bound to a
// randomly suffixed path; either bind is retried (up to bindAttempts times)
// on any error.
func dial(udp bool, clientAddr, serverAddr string) (*transport, error) {
	if udp {
		if serverAddr == "" {
			serverAddr = defaultUDPServerAddress
		}
		return dialUDP(clientAddr, serverAddr)
	}
	t, err := dialUnixgram(clientAddr, serverAddr)
	if err != nil {
		// Platforms without AF_UNIX support fall back to UDP.
		if serverAddr == "" {
			serverAddr = defaultUDPServerAddress
		}
		return dialUDP(clientAddr, serverAddr)
	}
	return t, nil
}

func dialUDP(clientAddr, serverAddr string) (*transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("client: resolve server address %s: %w", serverAddr, err)
	}

	if clientAddr != "" {
		laddr, err := net.ResolveUDPAddr("udp", clientAddr)
		if err != nil {
			return nil, fmt.Errorf("client: resolve client address %s: %w", clientAddr, err)
		}
		conn, err := net.DialUDP("udp", laddr, raddr)
		if err != nil {
			return nil, fmt.Errorf("client: dial udp %s: %w", clientAddr, err)
		}
		return &transport{conn: conn}, nil
	}

	var lastErr error
	for i := 0; i < bindAttempts; i++ {
		laddr := &net.UDPAddr{IP: net.IPv4zero, Port: 0}
		conn, err := net.DialUDP("udp", laddr, raddr)
		if err == nil {
			return &transport{conn: conn}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("client: dial udp: %w", lastErr)
}

func dialUnixgram(clientAddr, serverAddr string) (*transport, error) {
	if serverAddr == "" {
		serverAddr = defaultUnixServerPath
	}
	raddr, err := net.ResolveUnixAddr("unixgram", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("client: resolve server address %s: %w", serverAddr, err)
	}

	if clientAddr == "" {
		var lastErr error
		for i := 0; i < bindAttempts; i++ {
			clientAddr = fmt.Sprintf("%s.%06d", defaultUnixClientPrefix, rand.Intn(1000000))
			laddr, err := net.ResolveUnixAddr("unixgram", clientAddr)
			if err != nil {
				lastErr = err
				continue
			}
			conn, err := net.DialUnix("unixgram", laddr, raddr)
			if err == nil {
				return &transport{conn: conn, localPath: clientAddr}, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("client: dial unixgram: %w", lastErr)
	}

	laddr, err := net.ResolveUnixAddr("unixgram", clientAddr)
	if err != nil {
		return nil, fmt.Errorf("client: resolve client address %s: %w", clientAddr, err)
	}
	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("client: dial unixgram %s: %w", clientAddr, err)
	}
	return &transport{conn: conn, localPath: clientAddr}, nil
}

// transport wraps the client's connected datagram socket. Connected UDP/
// UNIX-datagram sockets let us use Write/Read directly rather than
// WriteTo/ReadFrom, since there is exactly one peer.
type transport struct {
	conn      net.Conn
	localPath string // non-empty when bound to a UNIX domain socket path
}

func (t *transport) roundTrip(req []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if err := t.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("client: set deadline: %w", err)
	}
	if _, err := t.conn.Write(req); err != nil {
		return nil, fmt.Errorf("client: send request: %w", err)
	}
	buf := make([]byte, defaultBufSize)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("client: read reply: %w", err)
	}
	return buf[:n], nil
}

// close closes the socket, unlinking the client's own UNIX domain socket
// file if one was bound (matsense/uclient.py's Uclient.close).
func (t *transport) close() error {
	err := t.conn.Close()
	if t.localPath != "" {
		_ = os.Remove(t.localPath)
	}
	return err
}
