package bus

import (
	"sync"
	"testing"
)

func TestPublishSnapshotRoundTrip(t *testing.T) {
	b := New(3)
	out := []float64{1, 2, 3}
	raw := []float64{4, 5, 6}
	imu := [6]float64{1, 2, 3, 4, 5, 6}
	b.Publish(out, raw, imu, 7)

	gotOut := make([]float64, 3)
	gotRaw := make([]float64, 3)
	gotIMU, idx := b.Snapshot(gotOut, gotRaw)

	if idx != 7 {
		t.Fatalf("frame idx = %d, want 7", idx)
	}
	for i := range out {
		if gotOut[i] != out[i] || gotRaw[i] != raw[i] {
			t.Fatalf("snapshot mismatch: out=%v raw=%v", gotOut, gotRaw)
		}
	}
	if gotIMU != imu {
		t.Fatalf("imu = %v, want %v", gotIMU, imu)
	}
}

func TestConcurrentPublishAndSnapshotDoNotPanic(t *testing.T) {
	b := New(16)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]float64, 16)
		raw := make([]float64, 16)
		var imu [6]float64
		for i := int32(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			b.Publish(out, raw, imu, i)
		}
	}()

	outDst := make([]float64, 16)
	rawDst := make([]float64, 16)
	for i := 0; i < 1000; i++ {
		b.Snapshot(outDst, rawDst)
	}
	close(stop)
	wg.Wait()
}
