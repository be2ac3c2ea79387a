package models

// Physical sensor ranges. Raw analog channels are 10-bit ADC counts; the
// temperature bounds match the DHT22 datasheet envelope.
const (
	MoistureMin    = 0.0
	MoistureMax    = 1023.0
	TemperatureMin = -40.0
	TemperatureMax = 70.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0
	LightMin       = 0.0
	LightMax       = 1023.0
)

// SensorReading is one sample from a logical plant channel, produced once
// per control tick. TimestampMs is monotonic milliseconds since boot, not
// wall-clock time.
type SensorReading struct {
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// TelemetryRecord is the compact per-channel message forwarded to the
// advisory gateway. WaterAmount is present only when Watered is true.
type TelemetryRecord struct {
	SensorIndex int      `json:"sensor"`
	Moisture    float64  `json:"moisture"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Light       float64  `json:"light"`
	Watered     bool     `json:"watered"`
	WaterAmount *float64 `json:"water_amount,omitempty"` // ml
	TimestampMs int64    `json:"timestamp_ms"`
}

// Advisory is the optional best-effort payload pushed by the gateway: an
// hourly forecast and a single anomaly confidence score. The controller must
// keep working when no advisory has ever arrived.
type Advisory struct {
	Forecast          []float64 `json:"forecast"`           // hourly moisture forecast
	AnomalyConfidence float64   `json:"anomaly_confidence"` // [0,1]
	ReceivedAtMs      int64     `json:"received_at_ms,omitempty"`
}
