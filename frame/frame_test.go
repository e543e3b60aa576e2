package frame

import (
	"io"
	"os"
	"testing"
	"time"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func TestSimpleSourceFraming(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewSimpleSource(pr, nopCloser{}, 4, time.Second)
	defer src.Close()

	go func() {
		pw.Write([]byte{1, 2, 3, 4, simpleDelim})
		pw.Write([]byte{5, 5, 5, 5, simpleDelim})
	}()

	raw := make([]float64, 4)
	if _, err := src.Fetch(raw, nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("frame 1 = %v, want %v", raw, want)
		}
	}

	if _, err := src.Fetch(raw, nil); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	for i := range raw {
		if raw[i] != 5 {
			t.Fatalf("frame 2 = %v, want all 5s", raw)
		}
	}
}

func TestSimpleSourceResync(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewSimpleSource(pr, nopCloser{}, 4, 200*time.Millisecond)
	defer src.Close()

	go func() {
		// A too-short run followed by delimiter is discarded, then a
		// valid frame follows.
		pw.Write([]byte{9, 9, simpleDelim})
		pw.Write([]byte{1, 2, 3, 4, simpleDelim})
	}()

	raw := make([]float64, 4)
	if _, err := src.Fetch(raw, nil); err != nil {
		t.Fatalf("fetch after resync: %v", err)
	}
	for i, v := range []float64{1, 2, 3, 4} {
		if raw[i] != v {
			t.Fatalf("frame = %v, want [1 2 3 4]", raw)
		}
	}
}

func TestSecureSourceEscapes(t *testing.T) {
	pr, pw := io.Pipe()
	// decodes to [0x5B, 0x00, 0x5D], so total=3.
	src := NewSecureSource(pr, nopCloser{}, 3, false, time.Second)
	defer src.Close()

	go func() {
		pw.Write([]byte{secureHead, secureEscape, escapeHead, 0x00, secureEscape, escapeTail, secureTail})
	}()

	raw := make([]float64, 3)
	if _, err := src.Fetch(raw, nil); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []float64{0x5B, 0x00, 0x5D}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("frame = %v, want %v", raw, want)
		}
	}
}

func TestSecureSourceWrongLengthResyncs(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewSecureSource(pr, nopCloser{}, 3, false, 300*time.Millisecond)
	defer src.Close()

	go func() {
		// Too short: discarded, logged, decoder resyncs on the next frame.
		pw.Write([]byte{secureHead, 0x01, secureTail})
		pw.Write([]byte{secureHead, 0x01, 0x02, 0x03, secureTail})
	}()

	raw := make([]float64, 3)
	if _, err := src.Fetch(raw, nil); err != nil {
		t.Fatalf("fetch after resync: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("frame = %v, want %v", raw, want)
		}
	}
}

func TestSecureSourceIMU(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewSecureSource(pr, nopCloser{}, 2, true, time.Second)
	defer src.Close()

	go func() {
		frame := []byte{secureHead, 10, 20}
		imu := make([]byte, 12)
		imu[0] = 0x01 // first int16 little-endian = 1
		frame = append(frame, imu...)
		frame = append(frame, secureTail)
		pw.Write(frame)
	}()

	raw := make([]float64, 2)
	imuOut := make([]int16, 6)
	if _, err := src.Fetch(raw, imuOut); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if raw[0] != 10 || raw[1] != 20 {
		t.Fatalf("raw = %v", raw)
	}
	if imuOut[0] != 1 {
		t.Fatalf("imu[0] = %d, want 1", imuOut[0])
	}
}

func TestFileSourceEndOfFiles(t *testing.T) {
	dir := t.TempDir()
	p := dir + "/a.csv"
	if err := os.WriteFile(p, []byte("1,2,3,4,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource([]string{p}, 3)
	defer src.Close()

	raw := make([]float64, 3)
	tags, err := src.Fetch(raw, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if raw[0] != 1 || raw[1] != 2 || raw[2] != 3 {
		t.Fatalf("raw = %v", raw)
	}
	if tags.Index != 4 || tags.TimestampUs != 5 {
		t.Fatalf("tags = %+v", tags)
	}

	if _, err := src.Fetch(raw, nil); err != ErrFileEnd {
		t.Fatalf("err = %v, want ErrFileEnd", err)
	}
}
