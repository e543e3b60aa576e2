package frame

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileSource replays one or more recorded CSV files in order. Each line is
// `total` comma-separated floats followed by a frame index and a microsecond
// timestamp, the format written by the recorder in worker/record.go.
// Grounded on matsense/serverkit/data_setter.py's DataSetterFile, which
// raises FileEnd once the last file is exhausted.
type FileSource struct {
	total   int
	paths   []string
	cur     int
	scanner *bufio.Scanner
	file    *os.File
}

// NewFileSource opens the first of paths lazily on the first Fetch.
func NewFileSource(paths []string, total int) *FileSource {
	return &FileSource{total: total, paths: paths, cur: -1}
}

func (f *FileSource) openNext() error {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
	f.cur++
	if f.cur >= len(f.paths) {
		return ErrFileEnd
	}
	file, err := os.Open(f.paths[f.cur])
	if err != nil {
		return fmt.Errorf("frame: open %s: %w", f.paths[f.cur], err)
	}
	f.file = file
	f.scanner = bufio.NewScanner(file)
	f.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return nil
}

// Fetch implements Source.
func (f *FileSource) Fetch(rawOut []float64, _ []int16) (Tags, error) {
	for {
		if f.scanner == nil {
			if err := f.openNext(); err != nil {
				return Tags{}, err
			}
		}
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return Tags{}, fmt.Errorf("frame: read %s: %w", f.paths[f.cur], err)
			}
			f.scanner = nil
			continue
		}
		line := strings.TrimSpace(f.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != f.total+2 {
			return Tags{}, fmt.Errorf("%w: line has %d fields, want %d", ErrInvalidFrame, len(fields), f.total+2)
		}
		for i := 0; i < f.total; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return Tags{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
			}
			rawOut[i] = v
		}
		idx, err := strconv.ParseInt(strings.TrimSpace(fields[f.total]), 10, 32)
		if err != nil {
			return Tags{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(fields[f.total+1]), 10, 64)
		if err != nil {
			return Tags{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return Tags{Index: int32(idx), TimestampUs: ts}, nil
	}
}

// Close implements Source.
func (f *FileSource) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}
