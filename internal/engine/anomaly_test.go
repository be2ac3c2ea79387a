package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart_irrigation/internal/models"
)

func nominalReading(moisture float64) models.SensorReading {
	return models.SensorReading{
		Moisture:    moisture,
		Temperature: 25,
		Humidity:    55,
		Light:       500,
	}
}

func TestAnomalyDetector_ColdStartDisabled(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())

	// fewer than MinimumSamples ingested: statistics must stay disarmed
	for i := 0; i < 4; i++ {
		score := d.Ingest(nominalReading(420))
		assert.Zero(t, score)
	}
	assert.False(t, d.Ready())
	assert.False(t, d.IsFault(nominalReading(900)), "statistical fault must not fire before warm-up")
}

func TestAnomalyDetector_SpikeAfterStableWindow(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())

	window := []float64{420, 430, 415, 440, 425, 418, 432, 428, 422}
	for _, m := range window {
		d.Ingest(nominalReading(m))
	}
	require.True(t, d.Ready())

	spike := nominalReading(900)
	assert.True(t, d.IsFault(spike), "900 against a tight window around 425 is > 3 sigma")
	assert.Greater(t, d.Ingest(spike), 0.997)
}

func TestAnomalyDetector_ScoreMonotonicInDeviation(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())
	for _, m := range []float64{400, 410, 420, 430, 440, 450} {
		d.Ingest(nominalReading(m))
	}

	// fixed window: widening the deviation never decreases the score
	prev := -1.0
	for _, m := range []float64{425, 500, 600, 700, 800, 900} {
		score := d.Score(nominalReading(m))
		assert.GreaterOrEqual(t, score, prev, "score regressed at moisture=%v", m)
		prev = score
	}
}

func TestAnomalyDetector_DisconnectionBands(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())

	cases := []struct {
		name string
		r    models.SensorReading
	}{
		{"moisture pinned low", models.SensorReading{Moisture: 0, Temperature: 25, Humidity: 55, Light: 500}},
		{"moisture pinned high", models.SensorReading{Moisture: 1020, Temperature: 25, Humidity: 55, Light: 500}},
		{"humidity pinned", models.SensorReading{Moisture: 420, Temperature: 25, Humidity: 100, Light: 500}},
		{"light pinned", models.SensorReading{Moisture: 420, Temperature: 25, Humidity: 55, Light: 1023}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, d.IsFault(tc.r))
		})
	}
}

func TestAnomalyDetector_OutOfRangeAndNonFinite(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())

	assert.True(t, d.IsFault(nominalReading(math.NaN())))

	bad := nominalReading(420)
	bad.Temperature = 75 // above physical range, below disconnect band
	assert.True(t, d.IsFault(bad))

	assert.False(t, d.IsFault(nominalReading(420)))
}

func TestAnomalyDetector_Reset(t *testing.T) {
	d := NewAnomalyDetector(DefaultAnomalyConfig())
	for i := 0; i < 10; i++ {
		d.Ingest(nominalReading(420))
	}
	require.True(t, d.Ready())

	d.Reset()
	assert.False(t, d.Ready())
	assert.Zero(t, d.Score(nominalReading(900)))
}
