package client

import (
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"
)

// fakeServer answers requests from a *Client with canned replies, standing
// in for a service.Service so the client's encode/decode logic can be
// exercised without wiring up the whole pipeline.
func fakeServer(t *testing.T, handle func(req []byte) []byte) (addr string, stop func()) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 65536)
		for {
			pc.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, from, err := pc.ReadFrom(buf)
			if err != nil {
				select {
				case <-done:
					return
				default:
					continue
				}
			}
			reply := handle(append([]byte(nil), buf[:n]...))
			if reply != nil {
				pc.WriteTo(reply, from)
			}
		}
	}()
	return pc.LocalAddr().String(), func() {
		close(done)
		pc.Close()
	}
}

func encodeFrame(values []float64, idx int32) []byte {
	buf := make([]byte, len(values)*8+4)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	binary.LittleEndian.PutUint32(buf[len(values)*8:], uint32(idx))
	return buf
}

func TestDataRoundTrip(t *testing.T) {
	addr, stop := fakeServer(t, func(req []byte) []byte {
		if req[0] != CmdData {
			t.Errorf("unexpected command %d", req[0])
		}
		return encodeFrame([]float64{1, 2, 3, 4}, 7)
	})
	defer stop()

	c, err := New(Options{Total: 4, UDP: true, ServerAddress: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	frame, err := c.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if frame.FrameIdx != 7 {
		t.Fatalf("FrameIdx = %d, want 7", frame.FrameIdx)
	}
	for i, v := range frame.Values {
		if v != float64(i+1) {
			t.Errorf("Values[%d] = %v, want %v", i, v, i+1)
		}
	}
}

func TestRecDataRoundTrip(t *testing.T) {
	addr, stop := fakeServer(t, func(req []byte) []byte {
		if req[0] != CmdRecData {
			t.Errorf("unexpected command %d", req[0])
		}
		if string(req[1:]) != "out.csv" {
			t.Errorf("filename = %q", string(req[1:]))
		}
		return append([]byte{0}, []byte("out.csv")...)
	})
	defer stop()

	c, err := New(Options{Total: 4, UDP: true, ServerAddress: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ack, err := c.RecData("out.csv")
	if err != nil {
		t.Fatalf("RecData: %v", err)
	}
	if !ack.OK || ack.Filename != "out.csv" {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	yamlDoc := "sensor:\n  shape:\n  - 4\n  - 4\n"
	addr, stop := fakeServer(t, func(req []byte) []byte {
		if req[0] != CmdConfig {
			t.Errorf("unexpected command %d", req[0])
		}
		return append([]byte{0}, []byte(yamlDoc)...)
	})
	defer stop()

	c, err := New(Options{Total: 16, UDP: true, ServerAddress: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	reply, err := c.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if !reply.OK {
		t.Fatalf("expected OK reply")
	}
	if len(reply.Config.Sensor.Shape) != 2 || reply.Config.Sensor.Shape[0] != 4 {
		t.Fatalf("decoded shape = %v", reply.Config.Sensor.Shape)
	}
}

func TestRestartFailureReportedWithoutError(t *testing.T) {
	addr, stop := fakeServer(t, func(req []byte) []byte {
		return append([]byte{255}, []byte("sensor:\n  shape:\n  - 4\n  - 4\n")...)
	})
	defer stop()

	c, err := New(Options{Total: 16, UDP: true, ServerAddress: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	reply, err := c.Restart("process:\n  cali_frames: 0\n")
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if reply.OK {
		t.Fatalf("expected failure status")
	}
}

func TestTimeoutReturnsError(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	c, err := New(Options{Total: 4, UDP: true, ServerAddress: pc.LocalAddr().String(), Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Data(); err == nil {
		t.Fatal("expected timeout error")
	}
}
