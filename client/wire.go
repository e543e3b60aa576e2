// Package client implements a MatSense wire-protocol client: a typed wrapper
// around the UDP/UNIX-domain-datagram request/reply protocol served by
// service.Service. Grounded on rolfl-modbus/client.go's typed-method-per-
// operation shape and matsense/uclient.py's Uclient.
package client

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Command codes, mirroring service.Cmd* (kept as independent constants since
// a client should not need to import the server-side service package).
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

// encodeRequest builds a request datagram: a command byte followed by an
// optional UTF-8 payload (a filename or a YAML patch).
func encodeRequest(cmd byte, payload string) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = cmd
	copy(buf[1:], payload)
	return buf
}

// decodeFrame parses a DATA/RAW/DATA_IMU reply: n float64s followed by a
// little-endian int32 frame index.
func decodeFrame(data []byte, n int) ([]float64, int32, error) {
	want := n*8 + 4
	if len(data) != want {
		return nil, 0, fmt.Errorf("client: frame reply length = %d, want %d", len(data), want)
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	idx := int32(binary.LittleEndian.Uint32(data[n*8:]))
	return values, idx, nil
}

// decodeAck parses a REC_DATA/REC_RAW/REC_STOP/RESTART/RESTART_FILE/CONFIG
// reply: a leading status byte (0 = success, 255 = failure) followed by an
// optional UTF-8 string.
func decodeAck(data []byte) (ok bool, payload string, err error) {
	if len(data) < 1 {
		return false, "", fmt.Errorf("client: empty reply")
	}
	return data[0] == 0, string(data[1:]), nil
}
