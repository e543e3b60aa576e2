package service

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"github.com/atomiechen/MatSense/bus"
	"github.com/atomiechen/MatSense/config"
	"github.com/atomiechen/MatSense/control"
)

func newLoopbackTransport(t *testing.T) *Transport {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return &Transport{conn: pc}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	c, err := config.Defaults()
	if err != nil {
		t.Fatalf("config.Defaults: %v", err)
	}
	return c
}

// request sends req to the service's transport and reads one reply,
// failing the test if none arrives within the deadline.
func request(t *testing.T, client *net.UDPConn, serverAddr net.Addr, req []byte) []byte {
	t.Helper()
	if _, err := client.WriteTo(req, serverAddr); err != nil {
		t.Fatalf("write request: %v", err)
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 65536)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return buf[:n]
}

func newClient(t *testing.T) *net.UDPConn {
	t.Helper()
	c, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("dial client: %v", err)
	}
	return c
}

func TestDataRequestReturnsBusSnapshot(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	b.Publish([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8}, [6]float64{}, 42)

	links := control.NewPair(4, 4, nil, nil)
	svc := New(transport, b, links, 4, testConfig(t), nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), []byte{CmdData})
	if len(reply) != 4*8+4 {
		t.Fatalf("reply length = %d, want %d", len(reply), 4*8+4)
	}
	for i := 0; i < 4; i++ {
		v := math.Float64frombits(binary.LittleEndian.Uint64(reply[i*8:]))
		if v != float64(i+1) {
			t.Errorf("value[%d] = %v, want %v", i, v, i+1)
		}
	}
	idx := int32(binary.LittleEndian.Uint32(reply[32:]))
	if idx != 42 {
		t.Fatalf("frame_idx = %d, want 42", idx)
	}

	cancel()
	<-done
}

func TestConfigRequestReturnsYAML(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	links := control.NewPair(4, 4, nil, nil)
	svc := New(transport, b, links, 4, testConfig(t), nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), []byte{CmdConfig})
	if len(reply) < 1 || reply[0] != 0 {
		t.Fatalf("expected success byte, got %v", reply)
	}
	if _, err := config.ParseYAML(reply[1:]); err != nil {
		t.Fatalf("reply payload did not parse as YAML: %v", err)
	}
}

func TestRecDataSendsRecStartAndWaitsForAck(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	links := control.NewPair(4, 4, nil, nil)
	svc := New(transport, b, links, 4, testConfig(t), nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// stand in for the processing worker
	go func() {
		msg, err := links.ToProcessing.Recv(ctx)
		if err != nil {
			return
		}
		if rs, ok := msg.(control.RecStart); ok && !rs.Raw {
			links.ToService.Send(control.RecAck{OK: true, Filename: "record_test.csv"})
		}
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), append([]byte{CmdRecData}, []byte("")...))
	if len(reply) < 1 || reply[0] != 0 {
		t.Fatalf("expected success ack, got %v", reply)
	}
	if string(reply[1:]) != "record_test.csv" {
		t.Fatalf("reply filename = %q", string(reply[1:]))
	}
}

func TestCloseRequestSendsStopAndExits(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	links := control.NewPair(4, 4, nil, nil)
	svc := New(transport, b, links, 4, testConfig(t), nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), []byte{CmdClose})
	if len(reply) != 1 || reply[0] != 0 {
		t.Fatalf("expected u8=0 reply, got %v", reply)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not exit after CLOSE")
	}

	msg, ok := links.ToProcessing.Poll()
	if !ok {
		t.Fatal("expected a message queued for processing")
	}
	if _, ok := msg.(control.RecStop); !ok {
		t.Fatalf("expected RecStop first, got %T", msg)
	}
	msg, ok = links.ToProcessing.Poll()
	if !ok {
		t.Fatal("expected a second message queued for processing")
	}
	if _, ok := msg.(control.Stop); !ok {
		t.Fatalf("expected Stop second, got %T", msg)
	}
}

func TestRestartWithEmptyPatchKeepsConfigAndExits(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	links := control.NewPair(4, 4, nil, nil)
	cfg := testConfig(t)
	svc := New(transport, b, links, 4, cfg, nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), []byte{CmdRestart})
	if len(reply) < 1 || reply[0] != 0 {
		t.Fatalf("expected success, got %v", reply)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not exit after RESTART")
	}
}

func TestRestartWithMalformedPatchFailsWithoutExit(t *testing.T) {
	transport := newLoopbackTransport(t)
	defer transport.Close()

	b := bus.New(4)
	links := control.NewPair(4, 4, nil, nil)
	svc := New(transport, b, links, 4, testConfig(t), nil, Options{ReadTimeout: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	client := newClient(t)
	defer client.Close()

	reply := request(t, client, transport.conn.LocalAddr(), append([]byte{CmdRestart}, []byte(": not valid yaml :::")...))
	if len(reply) < 1 || reply[0] != 255 {
		t.Fatalf("expected failure byte, got %v", reply)
	}

	// a second, well-formed request should still be served: the loop didn't exit
	reply = request(t, client, transport.conn.LocalAddr(), []byte{CmdConfig})
	if len(reply) < 1 || reply[0] != 0 {
		t.Fatalf("expected service still running after failed restart, got %v", reply)
	}
}
