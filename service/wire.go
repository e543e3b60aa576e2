// Package service implements the Service Worker (C7): a datagram server
// answering the DATA/RAW/REC_*/RESTART/CONFIG/DATA_IMU request/reply
// protocol over UDP or a UNIX domain datagram socket.
//
// Grounded on rolfl-modbus/server.go's handler-table dispatch (addRequestHandler,
// rhandlers map[byte]requestHandlerMeta) and matsense/serverkit/userver.py's
// run_service command loop.
package service

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Command codes, little-endian wire dialect. Gap at 8 preserved from the
// reference dialect (see DESIGN.md Open Question 3).
const (
	CmdClose       byte = 0
	CmdData        byte = 1
	CmdRaw         byte = 2
	CmdRecData     byte = 3
	CmdRecRaw      byte = 4
	CmdRecStop     byte = 5
	CmdRestart     byte = 6
	CmdConfig      byte = 7
	CmdDataIMU     byte = 9
	CmdRestartFile byte = 10
)

// replyBuilder accumulates an outgoing datagram, little-endian.
type replyBuilder struct {
	buf []byte
}

func (b *replyBuilder) byte(v byte) {
	b.buf = append(b.buf, v)
}

func (b *replyBuilder) float64s(vs []float64) {
	for _, v := range vs {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
		b.buf = append(b.buf, tmp[:]...)
	}
}

func (b *replyBuilder) int32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *replyBuilder) string(s string) {
	b.buf = append(b.buf, []byte(s)...)
}

func (b *replyBuilder) bytes() []byte {
	return b.buf
}

// okReply builds the `u8=0` success reply followed by an optional payload.
func okReply(payload []byte) []byte {
	b := &replyBuilder{buf: make([]byte, 0, 1+len(payload))}
	b.byte(0)
	b.buf = append(b.buf, payload...)
	return b.bytes()
}

// failReply builds the `u8=255` failure reply followed by an optional
// payload (e.g. the previous config on a failed RESTART).
func failReply(payload []byte) []byte {
	b := &replyBuilder{buf: make([]byte, 0, 1+len(payload))}
	b.byte(255)
	b.buf = append(b.buf, payload...)
	return b.bytes()
}

// frameReply packs total f64 values followed by the i32 frame index, the
// DATA/RAW reply shape.
func frameReply(values []float64, frameIdx int32) []byte {
	b := &replyBuilder{buf: make([]byte, 0, len(values)*8+4)}
	b.float64s(values)
	b.int32(frameIdx)
	return b.bytes()
}

// ErrMalformedRequest marks a datagram too short to carry its command code.
var ErrMalformedRequest = fmt.Errorf("service: malformed request")

// parseRequest splits an inbound datagram into its command byte and payload.
func parseRequest(data []byte) (cmd byte, payload []byte, err error) {
	if len(data) == 0 {
		return 0, nil, ErrMalformedRequest
	}
	return data[0], data[1:], nil
}
