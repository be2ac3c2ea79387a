package sensors

import (
	"math"
	"math/rand"
	"sync"

	"smart_irrigation/internal/models"
)

// ----------- Simulation constants -----------
const (
	StartMoisture    = 650.0 // fairly dry bed at boot
	DryRatePerTick   = 1.5   // ADC counts of drying per sample
	WateringBoost    = 180.0 // moisture gained per watering run
	MoistureNoise    = 6.0   // gaussian sigma, ADC counts
	BaseTemperatureC = 23.0
	TemperatureSwing = 4.0 // day/night amplitude
	TemperatureNoise = 0.3
	BaseHumidity     = 58.0
	HumidityNoise    = 2.0
	BaseLight        = 520.0
	LightSwing       = 400.0
	LightNoise       = 15.0
	dayCycleMs       = 24 * 60 * 60 * 1000
)

// SimulatedBank models a bed of soil channels for bench runs: moisture
// dries out tick by tick and jumps when a pump runs. It doubles as the
// pump driver so waterings feed back into the readings.
type SimulatedBank struct {
	mu       sync.Mutex
	rng      *rand.Rand
	moisture []float64
	active   []bool
}

func NewSimulatedBank(channels int, seed int64) *SimulatedBank {
	b := &SimulatedBank{
		rng:      rand.New(rand.NewSource(seed)),
		moisture: make([]float64, channels),
		active:   make([]bool, channels),
	}
	for i := range b.moisture {
		b.moisture[i] = StartMoisture + float64(i)*20
	}
	return b
}

// Sample returns one noisy reading per channel and advances the soil model.
func (b *SimulatedBank) Sample(nowMs int64) []models.SensorReading {
	b.mu.Lock()
	defer b.mu.Unlock()

	phase := 2 * math.Pi * float64(nowMs%dayCycleMs) / dayCycleMs
	out := make([]models.SensorReading, len(b.moisture))
	for i := range b.moisture {
		b.moisture[i] += DryRatePerTick
		if b.active[i] {
			// pump running this tick; soil gets wetter (lower ADC count)
			b.moisture[i] -= WateringBoost
		}
		b.moisture[i] = clamp(b.moisture[i], models.MoistureMin+20, models.MoistureMax-20)

		out[i] = models.SensorReading{
			Moisture:    clamp(b.moisture[i]+b.rng.NormFloat64()*MoistureNoise, models.MoistureMin, models.MoistureMax),
			Temperature: BaseTemperatureC + TemperatureSwing*math.Sin(phase) + b.rng.NormFloat64()*TemperatureNoise,
			Humidity:    clamp(BaseHumidity+b.rng.NormFloat64()*HumidityNoise, models.HumidityMin, models.HumidityMax),
			Light:       clamp(BaseLight+LightSwing*math.Sin(phase)+b.rng.NormFloat64()*LightNoise, models.LightMin, models.LightMax),
			TimestampMs: nowMs,
		}
	}
	return out
}

// PumpOn marks the channel as being watered until PumpOff.
func (b *SimulatedBank) PumpOn(index int) { b.setActive(index, true) }

// PumpOff ends the watering for the channel.
func (b *SimulatedBank) PumpOff(index int) { b.setActive(index, false) }

func (b *SimulatedBank) setActive(index int, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index >= 0 && index < len(b.active) {
		b.active[index] = on
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
