package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/rs/xid"

	"github.com/atomiechen/MatSense/bus"
	"github.com/atomiechen/MatSense/config"
	"github.com/atomiechen/MatSense/control"
)

// defaultReadTimeout matches the reference implementation's 100ms recvfrom
// timeout (userver.py's TIMEOUT).
const defaultReadTimeout = 100 * time.Millisecond

// recAckTimeout bounds how long REC_DATA/REC_RAW wait for the processing
// worker's RecAck before replying failure to the client; the processing
// loop polls C5 every iteration so this is generous, not tight.
const recAckTimeout = 2 * time.Second

// Options configures a Service.
type Options struct {
	ReadTimeout time.Duration // 0 -> defaultReadTimeout
}

// Service implements the Service Worker (C7): the datagram request/reply
// loop. Grounded on matsense/serverkit/userver.py's run_service.
type Service struct {
	transport *Transport
	bus       *bus.Bus
	links     *control.Pair
	total     int
	cfg       config.Config
	metrics   *Metrics
	opts      Options

	clients map[string]xid.ID

	outBuf []float64
	rawBuf []float64
}

// New builds a Service bound to transport, reading from b and issuing
// control messages through links. cfg is the effective configuration at
// startup, used to answer CONFIG and as the RESTART merge base.
func New(transport *Transport, b *bus.Bus, links *control.Pair, total int, cfg config.Config, metrics *Metrics, opts Options) *Service {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &Service{
		transport: transport,
		bus:       b,
		links:     links,
		total:     total,
		cfg:       cfg,
		metrics:   metrics,
		opts:      opts,
		clients:   make(map[string]xid.ID),
		outBuf:    make([]float64, total),
		rawBuf:    make([]float64, total),
	}
}

// Run is the main request/reply loop. It returns a non-nil restartPayload
// (the effective config, YAML-encoded) when it exits because a RESTART or
// RESTART_FILE request succeeded; the caller tears the whole pipeline down
// and rebuilds it from that payload, same contract as worker.Worker.Run.
func (s *Service) Run(ctx context.Context) (restartPayload []byte, err error) {
	log.Printf("running service, %s", s.describeTransport())

	buf := make([]byte, defaultBufSize)
	pc, ok := s.transport.conn.(interface {
		SetReadDeadline(time.Time) error
	})
	if !ok {
		return nil, fmt.Errorf("service: transport does not support read deadlines")
	}

	for {
		if msg, ok := s.links.ToService.Poll(); ok {
			if _, isStop := msg.(control.Stop); isStop {
				log.Println("service stopping: processing worker exited")
				return nil, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_ = pc.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		n, addr, rerr := s.transport.conn.ReadFrom(buf)
		if rerr != nil {
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				continue
			}
			if isClientOffline(rerr) {
				log.Println("client off-line")
				s.metrics.addOffline()
				continue
			}
			return nil, fmt.Errorf("service: read: %w", rerr)
		}

		cmd, payload, perr := parseRequest(buf[:n])
		if perr != nil {
			continue
		}
		s.metrics.addRequest(cmd, n)
		s.logRequest(addr, cmd)

		restart, reply, exit := s.dispatch(cmd, payload)
		if reply != nil {
			if _, werr := s.transport.conn.WriteTo(reply, addr); werr != nil {
				if isClientOffline(werr) {
					log.Println("client off-line")
					s.metrics.addOffline()
				} else {
					log.Printf("service: write reply: %v", werr)
				}
			} else {
				s.metrics.addReply(cmd, len(reply))
			}
		}
		if exit {
			return restart, nil
		}
	}
}

// dispatch handles one request, returning the reply datagram (nil means no
// reply is sent, mirroring the reference implementation's silent ignore of
// unknown commands) and whether the service loop should exit.
func (s *Service) dispatch(cmd byte, payload []byte) (restartPayload, reply []byte, exit bool) {
	switch cmd {
	case CmdClose:
		reply = okReply(nil)
		s.links.ToProcessing.Send(control.RecStop{})
		s.links.ToProcessing.Send(control.Stop{})
		return nil, reply, true

	case CmdData:
		imu, idx := s.bus.Snapshot(s.outBuf, s.rawBuf)
		_ = imu
		return nil, frameReply(s.outBuf, idx), false

	case CmdRaw:
		imu, idx := s.bus.Snapshot(s.outBuf, s.rawBuf)
		_ = imu
		return nil, frameReply(s.rawBuf, idx), false

	case CmdDataIMU:
		imu, idx := s.bus.Snapshot(s.outBuf, s.rawBuf)
		return nil, frameReply(imu[:], idx), false

	case CmdRecData, CmdRecRaw:
		filename := string(payload)
		s.links.ToProcessing.Send(control.RecStart{Raw: cmd == CmdRecRaw, Filename: filename})
		s.metrics.setRecording(true)
		ack, werr := s.waitForAck()
		if werr != nil || !ack.OK {
			s.metrics.setRecording(false)
			return nil, failReply(nil), false
		}
		return nil, okReply([]byte(ack.Filename)), false

	case CmdRecStop:
		s.links.ToProcessing.Send(control.RecStop{})
		s.metrics.setRecording(false)
		return nil, okReply(nil), false

	case CmdRestart:
		return s.handleRestart(string(payload), false)

	case CmdRestartFile:
		return s.handleRestart(string(payload), true)

	case CmdConfig:
		dumped, derr := config.DumpYAML(s.cfg)
		if derr != nil {
			return nil, failReply(nil), false
		}
		return nil, okReply(dumped), false

	default:
		return nil, nil, false
	}
}

// handleRestart implements RESTART/RESTART_FILE: an empty patch/filename
// keeps the current config; otherwise the patch is parsed, merged onto the
// current config (overlay wins, see DESIGN.md Open Question 5), and
// normalized. On success the service exits, handing the effective config
// back to the caller for a full pipeline rebuild.
func (s *Service) handleRestart(content string, fromFile bool) (restartPayload, reply []byte, exit bool) {
	effective := s.cfg

	if content != "" {
		var raw []byte
		if fromFile {
			data, rerr := os.ReadFile(content)
			if rerr != nil {
				return nil, s.restartFailReply(), false
			}
			raw = data
		} else {
			raw = []byte(content)
		}

		overlay, perr := config.ParseYAML(raw)
		if perr != nil {
			return nil, s.restartFailReply(), false
		}
		merged := config.Merge(s.cfg, overlay)
		if nerr := config.Normalize(&merged); nerr != nil {
			return nil, s.restartFailReply(), false
		}
		effective = merged
	} else if fromFile {
		// RESTART_FILE with an empty filename is always a failure
		// (matsense/serverkit/userver.py's RESTART_FILE branch).
		return nil, s.restartFailReply(), false
	}

	dumped, derr := config.DumpYAML(effective)
	if derr != nil {
		return nil, s.restartFailReply(), false
	}

	s.links.ToProcessing.Send(control.RecStop{})
	s.links.ToProcessing.Send(control.Restart{Config: dumped})
	return dumped, okReply(dumped), true
}

func (s *Service) restartFailReply() []byte {
	dumped, derr := config.DumpYAML(s.cfg)
	if derr != nil {
		return failReply(nil)
	}
	return failReply(dumped)
}

// waitForAck blocks for the processing worker's RecAck, bounded by
// recAckTimeout as a safety net against a wedged processing loop.
func (s *Service) waitForAck() (control.RecAck, error) {
	deadline := time.Now().Add(recAckTimeout)
	for time.Now().Before(deadline) {
		if msg, ok := s.links.ToService.Poll(); ok {
			if ack, ok := msg.(control.RecAck); ok {
				return ack, nil
			}
			// Stop arriving mid-wait: processing died, give up.
			if _, ok := msg.(control.Stop); ok {
				return control.RecAck{}, fmt.Errorf("service: processing stopped while waiting for ack")
			}
		}
		time.Sleep(time.Millisecond)
	}
	return control.RecAck{}, fmt.Errorf("service: timed out waiting for ack")
}

func (s *Service) logRequest(addr net.Addr, cmd byte) {
	key := addr.String()
	id, ok := s.clients[key]
	if !ok {
		id = xid.New()
		s.clients[key] = id
	}
	log.Printf("[%s] %s request from %s", id.String(), cmdNames[cmd], key)
}

func (s *Service) describeTransport() string {
	if s.transport.unixPath != "" {
		return fmt.Sprintf("protocol: UNIX domain datagram, address: %s", s.transport.unixPath)
	}
	return fmt.Sprintf("protocol: UDP, address: %s", s.transport.conn.LocalAddr())
}

// isClientOffline reports whether err is the kind of transient delivery
// failure the reference implementation logs as "client off-line" rather
// than treating as fatal (FileNotFoundError/ConnectionResetError there;
// ECONNREFUSED/ENOENT on an unconnected datagram socket here).
func isClientOffline(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, os.ErrNotExist)
}
