package client

import (
	"fmt"
	"time"
)

// Options configures a Client.
type Options struct {
	// Total is the number of sensor taps (rows*cols), used to size DATA/RAW
	// replies. Required.
	Total int
	// UDP selects UDP transport; otherwise a UNIX domain datagram socket is
	// used (with fallback to UDP on platforms that lack one).
	UDP bool
	// ClientAddress, if set, pins the client's own socket address instead of
	// letting dial() pick one.
	ClientAddress string
	// ServerAddress, if set, overrides the default server endpoint.
	ServerAddress string
	// Timeout bounds each request/reply round trip. Zero uses defaultTimeout.
	Timeout time.Duration
}

// Client drives a single MatSense Service Worker: one in-flight request at a
// time, matching the server's no-pipelining contract.
type Client struct {
	t       *transport
	total   int
	timeout time.Duration
}

// New dials a Client per opts.
func New(opts Options) (*Client, error) {
	if opts.Total <= 0 {
		return nil, fmt.Errorf("client: total must be positive")
	}
	t, err := dial(opts.UDP, opts.ClientAddress, opts.ServerAddress)
	if err != nil {
		return nil, err
	}
	return &Client{t: t, total: opts.Total, timeout: opts.Timeout}, nil
}

// Close closes the client's socket.
func (c *Client) Close() error {
	return c.t.close()
}

// Frame is one DATA/RAW/DATA_IMU reply.
type Frame struct {
	Values   []float64
	FrameIdx int32
}

// Data requests the latest calibrated pressure frame.
func (c *Client) Data() (Frame, error) {
	return c.fetchFrame(CmdData, c.total)
}

// Raw requests the latest raw (pre-calibration) frame.
func (c *Client) Raw() (Frame, error) {
	return c.fetchFrame(CmdRaw, c.total)
}

// DataIMU requests the latest 6-axis IMU sample.
func (c *Client) DataIMU() (Frame, error) {
	return c.fetchFrame(CmdDataIMU, 6)
}

func (c *Client) fetchFrame(cmd byte, n int) (Frame, error) {
	reply, err := c.t.roundTrip(encodeRequest(cmd, ""), c.timeout)
	if err != nil {
		return Frame{}, err
	}
	values, idx, err := decodeFrame(reply, n)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Values: values, FrameIdx: idx}, nil
}

// WaitForNewFrame polls Data (or Raw, if raw is true) until frame_idx
// differs from prev, matching matsense/uclient.py's fetch_frame(new=True)
// busy-poll loop.
func (c *Client) WaitForNewFrame(prev int32, raw bool) (Frame, error) {
	for {
		var (f Frame; err error)
		if raw {
			f, err = c.Raw()
		} else {
			f, err = c.Data()
		}
		if err != nil {
			return Frame{}, err
		}
		if f.FrameIdx != prev {
			return f, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// RecAck is the reply to REC_DATA/REC_RAW: whether recording started, and
// the filename the server is writing to.
type RecAck struct {
	OK       bool
	Filename string
}

// RecData starts recording calibrated pressure frames to filename.
func (c *Client) RecData(filename string) (RecAck, error) {
	return c.recStart(CmdRecData, filename)
}

// RecRaw starts recording raw frames to filename.
func (c *Client) RecRaw(filename string) (RecAck, error) {
	return c.recStart(CmdRecRaw, filename)
}

func (c *Client) recStart(cmd byte, filename string) (RecAck, error) {
	reply, err := c.t.roundTrip(encodeRequest(cmd, filename), c.timeout)
	if err != nil {
		return RecAck{}, err
	}
	ok, name, err := decodeAck(reply)
	if err != nil {
		return RecAck{}, err
	}
	return RecAck{OK: ok, Filename: name}, nil
}

// RecStop stops any in-progress recording.
func (c *Client) RecStop() error {
	reply, err := c.t.roundTrip(encodeRequest(CmdRecStop, ""), c.timeout)
	if err != nil {
		return err
	}
	ok, _, err := decodeAck(reply)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("client: REC_STOP failed")
	}
	return nil
}

// CloseServer sends the CLOSE command, which shuts the whole server process down.
func (c *Client) CloseServer() error {
	reply, err := c.t.roundTrip(encodeRequest(CmdClose, ""), c.timeout)
	if err != nil {
		return err
	}
	ok, _, err := decodeAck(reply)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("client: CLOSE failed")
	}
	return nil
}
