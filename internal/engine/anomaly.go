package engine

import (
	"math"

	"smart_irrigation/internal/models"
)

// Monitored quantities per channel window.
const (
	chanMoisture = iota
	chanTemperature
	chanHumidity
	chanLight
	chanCount
)

// AnomalyConfig tunes the statistical sensor-fault detector.
type AnomalyConfig struct {
	WindowCapacity int     // rolling window size per quantity
	MinimumSamples int     // statistics invalid below this count
	FaultScore     float64 // combined-score fault cutoff (~3 sigma two-tailed)
}

// DefaultAnomalyConfig mirrors the deployed sensor window: one sample per
// hour over a day, five samples before statistics are trusted.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		WindowCapacity: 24,
		MinimumSamples: 5,
		FaultScore:     0.997,
	}
}

// AnomalyDetector flags disconnected, out-of-range and statistically
// anomalous readings for a single sensor channel. It owns the rolling
// windows and statistics; nothing else mutates them.
type AnomalyDetector struct {
	cfg     AnomalyConfig
	windows [chanCount]*rollingWindow
	stats   [chanCount]ChannelStatistics
}

func NewAnomalyDetector(cfg AnomalyConfig) *AnomalyDetector {
	if cfg.WindowCapacity <= 0 {
		cfg = DefaultAnomalyConfig()
	}
	d := &AnomalyDetector{cfg: cfg}
	for i := range d.windows {
		d.windows[i] = newRollingWindow(cfg.WindowCapacity)
	}
	return d
}

// Ingest scores the reading against the existing window, then pushes it and
// recomputes the statistics. Scoring happens before the push so a spike is
// measured against history it has not yet contaminated. The score is 0 until
// the window holds the minimum sample count.
func (d *AnomalyDetector) Ingest(r models.SensorReading) float64 {
	score := d.Score(r)
	d.windows[chanMoisture].push(r.Moisture)
	d.windows[chanTemperature].push(r.Temperature)
	d.windows[chanHumidity].push(r.Humidity)
	d.windows[chanLight].push(r.Light)
	for i := range d.windows {
		d.stats[i] = d.windows[i].compute(d.cfg.MinimumSamples)
	}
	return score
}

// Score maps the worst per-quantity z-score to a bounded probability via
// 0.5*(1+tanh(|z|/sqrt(2))). It saturates smoothly instead of diverging,
// which keeps the fault cutoff meaningful for wildly broken sensors.
func (d *AnomalyDetector) Score(r models.SensorReading) float64 {
	if !d.Ready() {
		return 0
	}
	maxZ := math.Abs(d.stats[chanMoisture].zScore(r.Moisture))
	maxZ = math.Max(maxZ, math.Abs(d.stats[chanTemperature].zScore(r.Temperature)))
	maxZ = math.Max(maxZ, math.Abs(d.stats[chanHumidity].zScore(r.Humidity)))
	maxZ = math.Max(maxZ, math.Abs(d.stats[chanLight].zScore(r.Light)))
	return 0.5 * (1.0 + math.Tanh(maxZ/math.Sqrt2))
}

// IsFault reports whether the reading should be treated as a sensor fault:
// a disconnection pattern, a physically impossible value, or a combined
// anomaly score above the cutoff. Statistical detection is disabled until
// the window is warm, so cold starts cannot trip it.
func (d *AnomalyDetector) IsFault(r models.SensorReading) bool {
	if isDisconnected(r) || isOutOfRange(r) {
		return true
	}
	if !d.Ready() {
		return false
	}
	return d.Score(r) > d.cfg.FaultScore
}

// Ready reports whether statistical detection is armed.
func (d *AnomalyDetector) Ready() bool {
	return d.windows[chanMoisture].count >= d.cfg.MinimumSamples
}

// Statistics returns the current moisture-channel statistics. Exposed for
// the status report; callers never mutate it.
func (d *AnomalyDetector) Statistics() ChannelStatistics {
	return d.stats[chanMoisture]
}

// Reset clears history and statistics, rearming the cold-start guard.
func (d *AnomalyDetector) Reset() {
	for i := range d.windows {
		d.windows[i].reset()
		d.stats[i] = ChannelStatistics{}
	}
}

// Disconnection bands: analog sensors pinned at either rail, DHT22 readings
// at the ends of its envelope.
func isDisconnected(r models.SensorReading) bool {
	if r.Moisture <= 5 || r.Moisture >= 1018 {
		return true
	}
	if r.Temperature <= -50 || r.Temperature >= 80 {
		return true
	}
	if r.Humidity <= 1 || r.Humidity >= 99 {
		return true
	}
	if r.Light <= 5 || r.Light >= 1018 {
		return true
	}
	return false
}

func isOutOfRange(r models.SensorReading) bool {
	if math.IsNaN(r.Moisture) || r.Moisture < models.MoistureMin || r.Moisture > models.MoistureMax {
		return true
	}
	if math.IsNaN(r.Temperature) || r.Temperature < models.TemperatureMin || r.Temperature > models.TemperatureMax {
		return true
	}
	if math.IsNaN(r.Humidity) || r.Humidity < models.HumidityMin || r.Humidity > models.HumidityMax {
		return true
	}
	if math.IsNaN(r.Light) || r.Light < models.LightMin || r.Light > models.LightMax {
		return true
	}
	return false
}
