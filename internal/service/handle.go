package service

import (
	"sync"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
)

// SensorSource produces one reading per channel per tick. Mirrors
// sensors.Source without importing the hardware package.
type SensorSource interface {
	Sample(nowMs int64) []models.SensorReading
}

// TelemetryPublisher is the best-effort gateway uplink. Publish never
// blocks; Dropped reports how many records were discarded so far.
type TelemetryPublisher interface {
	Publish(rec models.TelemetryRecord) bool
	Dropped() uint64
}

// controllerHandle serializes all access to the single-threaded control
// core. The HTTP layer and the control loop contend on this mutex; ticks
// and commands are both short, so a plain mutex is enough.
type controllerHandle struct {
	mu    sync.Mutex
	ctrl  *engine.Controller
	clock engine.Clock
}

func (h *controllerHandle) now() time.Time { return h.clock.Now() }

// with runs fn with exclusive access to the controller.
func (h *controllerHandle) with(fn func(c *engine.Controller)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.ctrl)
}
