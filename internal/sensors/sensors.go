package sensors

import "smart_irrigation/internal/models"

// Source produces one reading per channel. Sample must not block; the
// control loop calls it once per tick.
type Source interface {
	Sample(nowMs int64) []models.SensorReading
}
