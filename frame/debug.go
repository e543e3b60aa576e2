package frame

import "time"

// DebugSource produces no data; it exists so the pipeline can run without
// any hardware attached, e.g. to exercise C7 in isolation.
type DebugSource struct{}

// NewDebugSource returns a no-op source.
func NewDebugSource() *DebugSource { return &DebugSource{} }

// Fetch implements Source: sleeps 10ms and leaves the buffers untouched.
func (d *DebugSource) Fetch(_ []float64, _ []int16) (Tags, error) {
	time.Sleep(10 * time.Millisecond)
	return Tags{}, nil
}

// Close implements Source.
func (d *DebugSource) Close() error { return nil }
