package worker

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	filenameTemplate    = "record_%s.csv"
	filenameTemplateRaw = "record_%s_raw.csv"
	filenameTimeLayout  = "20060102150405"
)

// recorder owns the single append-only recording file the processing
// worker writes to. Grounded on matsense/filemanager.py::write_line and
// serverkit/proc.py's record_raw bookkeeping.
type recorder struct {
	file     *os.File
	filename string
	raw      bool
	copyTags bool
}

// startRecording opens filename for append, synthesizing one from the current time
// if filename is empty. raw selects which bus buffer future writeLine calls
// read from once this recorder becomes active; see DESIGN.md Open Question
// 2 for why this is a plain equality check rather than the reference
// implementation's tautological assignment.
func startRecording(filename string, raw, copyTags bool) (*recorder, error) {
	if filename == "" {
		layout := filenameTemplate
		if raw {
			layout = filenameTemplateRaw
		}
		filename = fmt.Sprintf(layout, time.Now().Format(filenameTimeLayout))
	}
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &recorder{file: f, filename: filename, raw: raw, copyTags: copyTags}, nil
}

func (r *recorder) close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// writeLine appends one CSV row: the frame values, then either the tags
// copied from the frame source or a synthesized (frameIdx, timestampUs)
// pair.
func (r *recorder) writeLine(data []float64, frameIdx int32, timestampUs int64) error {
	var b strings.Builder
	for _, v := range data {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte(',')
	}
	b.WriteString(strconv.FormatInt(int64(frameIdx), 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(timestampUs, 10))
	b.WriteByte('\n')
	_, err := r.file.WriteString(b.String())
	return err
}
