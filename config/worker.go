package config

import (
	"time"

	"github.com/atomiechen/MatSense/worker"
)

// WorkerConfig translates a normalized Config into a worker.Config.
// CopyTags is not an exposed config field in the original either — it is
// left off here, and the caller that builds the frame source sets it
// (cmd/matsensed turns it on when replaying recorded files).
func WorkerConfig(c Config) worker.Config {
	return worker.Config{
		WarmUp:   time.Duration(floatVal(c.Process.WarmUp) * float64(time.Second)),
		CopyTags: false,
		IMU:      boolVal(c.Serial.IMU),
	}
}
