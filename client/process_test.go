package client

import (
	"testing"

	"github.com/atomiechen/MatSense/config"
)

func testProcessorConfig(t *testing.T, mutate func(*config.Config)) config.Config {
	t.Helper()
	c, err := config.Defaults()
	if err != nil {
		t.Fatalf("config.Defaults: %v", err)
	}
	c.Sensor.Shape = []int{4, 4}
	if mutate != nil {
		mutate(&c)
	}
	if err := config.Normalize(&c); err != nil {
		t.Fatalf("config.Normalize: %v", err)
	}
	return c
}

func TestProcessorNoOpWithoutInterpOrBlob(t *testing.T) {
	c := testProcessorConfig(t, func(c *config.Config) {
		no := false
		c.Process.Blob = &no
		c.Process.Interp = []int{4, 4}
	})

	p, err := NewProcessor(c)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	frame := []float64{0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	interp, b := p.Transform(frame)
	if len(interp) != len(frame) {
		t.Fatalf("interp length = %d, want %d", len(interp), len(frame))
	}
	for i, v := range interp {
		if v != frame[i] {
			t.Fatalf("interp[%d] = %v, want %v (no-op expected)", i, v, frame[i])
		}
	}
	if b.Found {
		t.Fatalf("expected no blob, got %+v", b)
	}
}

func TestProcessorLocatesBlob(t *testing.T) {
	yes := true
	th := 0.5
	num := 1
	c := testProcessorConfig(t, func(c *config.Config) {
		c.Process.Blob = &yes
		c.Process.Threshold = &th
		c.Process.BlobNum = &num
		c.Process.Interp = []int{4, 4}
	})

	p, err := NewProcessor(c)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	frame := make([]float64, 16)
	frame[5] = 2.0 // row 1, col 1 in a 4x4 grid

	_, b := p.Transform(frame)
	if !b.Found {
		t.Fatalf("expected a blob to be found")
	}
	if b.Value <= 0 {
		t.Fatalf("expected positive blob value, got %v", b.Value)
	}
}
