package engine

import (
	"github.com/montanaflynn/stats"
)

// ChannelStatistics holds rolling statistics for one monitored quantity
// (moisture, temperature, humidity or light). Valid is false until the
// window has accumulated the configured minimum number of samples.
type ChannelStatistics struct {
	Mean        float64
	Variance    float64 // population variance
	StdDev      float64
	Min         float64
	Max         float64
	SampleCount int
	Valid       bool
}

// rollingWindow is a fixed-capacity oldest-overwrite sample buffer.
type rollingWindow struct {
	values []float64
	next   int
	count  int
}

func newRollingWindow(capacity int) *rollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &rollingWindow{values: make([]float64, capacity)}
}

func (w *rollingWindow) push(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

func (w *rollingWindow) samples() []float64 {
	return w.values[:w.count]
}

func (w *rollingWindow) reset() {
	w.next = 0
	w.count = 0
}

// compute recomputes the window statistics. Below minSamples the result is
// marked invalid and consumers must treat the channel as unobserved.
func (w *rollingWindow) compute(minSamples int) ChannelStatistics {
	cs := ChannelStatistics{SampleCount: w.count}
	if w.count == 0 {
		return cs
	}

	data := stats.Float64Data(w.samples())
	cs.Mean, _ = stats.Mean(data)
	cs.Variance, _ = stats.PopulationVariance(data)
	cs.StdDev, _ = stats.StandardDeviationPopulation(data)
	cs.Min, _ = stats.Min(data)
	cs.Max, _ = stats.Max(data)
	cs.Valid = w.count >= minSamples
	return cs
}

// zScore quantifies how far v sits from the rolling mean. A degenerate
// window (stdDev ~ 0) yields 0 rather than diverging.
func (cs ChannelStatistics) zScore(v float64) float64 {
	const epsilon = 1e-9
	if cs.StdDev < epsilon {
		return 0
	}
	return (v - cs.Mean) / cs.StdDev
}
