package engine

import (
	"time"

	"smart_irrigation/internal/models"
)

// WaterTier is the discrete water-amount selection.
type WaterTier int

const (
	TierNone WaterTier = iota
	TierLow
	TierMedium
	TierHigh
)

var tierNames = map[WaterTier]string{
	TierNone:   "none",
	TierLow:    "low",
	TierMedium: "medium",
	TierHigh:   "high",
}

func (t WaterTier) String() string { return tierNames[t] }

// Tier quantization cut points on the adjusted prediction.
const (
	tierLowCut    = 0.25
	tierMediumCut = 0.5
	tierHighCut   = 0.75
)

// Pump flow calibration: ~100 ml/s, so each tier maps to a fixed on-time
// and a nominal delivered volume of 50 ml per tier unit.
const (
	mlPerTierUnit      = 50.0
	failsafeWaterML    = 100.0
	durationTierLow    = 500 * time.Millisecond
	durationTierMedium = 1000 * time.Millisecond
	durationTierHigh   = 2000 * time.Millisecond
)

// referenceThreshold is the generic moisture threshold the tree was tuned
// against; species lookups rescale the raw score relative to it.
const referenceThreshold = 400.0

// failsafeDryFactor: a raw moisture reading this far above the adjusted
// threshold is treated as unambiguously dry soil even when the inference
// inputs are suspect.
const failsafeDryFactor = 1.2

// Feature normalization bounds.
const (
	tempNormFloor = 10.0 // feature range 10-40 C
	tempNormSpan  = 30.0
	maxHoursSince = 48.0
)

// PlantAssignment binds a sensor channel to a species and growth stage.
type PlantAssignment struct {
	Type  PlantType
	Stage GrowthStage
}

// Decision is the outcome of one inference pass for one channel.
type Decision struct {
	ShouldWater bool
	Tier        WaterTier
	Duration    time.Duration
	WaterAmount float64 // ml
	IsFailsafe  bool
	Suppressed  bool // cooldown held an otherwise positive decision back
}

// DecisionEngine runs the rule-based irrigation pipeline: feature scoring,
// tree classification, species/stage threshold adjustment and discrete
// water-amount selection, with cooldown enforcement and the anomaly-driven
// failsafe override on top.
type DecisionEngine struct {
	tree     *InferenceTree
	profiles *ProfileTable

	lastWatering    []time.Time
	minInterval     time.Duration
	failsafeEnabled bool

	inferences     uint64
	totalInference time.Duration
}

// NewDecisionEngine builds an engine for the given channel count. The tree
// must already be validated.
func NewDecisionEngine(channels int, tree *InferenceTree, profiles *ProfileTable, minInterval time.Duration) *DecisionEngine {
	if minInterval <= 0 {
		minInterval = 6 * time.Hour
	}
	return &DecisionEngine{
		tree:            tree,
		profiles:        profiles,
		lastWatering:    make([]time.Time, channels),
		minInterval:     minInterval,
		failsafeEnabled: true,
	}
}

// SetFailsafeMode toggles the anomaly-driven failsafe override.
func (e *DecisionEngine) SetFailsafeMode(enabled bool) { e.failsafeEnabled = enabled }

// Decide runs the pipeline for one channel. fault is the anomaly detector's
// verdict for this reading; when set, the normal pipeline is bypassed
// entirely and only the raw-moisture failsafe path may water.
//
// Failsafe waterings bypass the cooldown check but still update the
// last-watering timestamp, so an emergency watering pushes back the next
// scheduled one instead of stacking on top of it.
func (e *DecisionEngine) Decide(sensorIndex int, r models.SensorReading, pa PlantAssignment, fault bool, now time.Time) Decision {
	if sensorIndex < 0 || sensorIndex >= len(e.lastWatering) {
		return Decision{}
	}

	adjThreshold := e.profiles.MoistureThreshold(pa.Type, pa.Stage)

	if fault {
		if e.failsafeEnabled && r.Moisture > failsafeDryFactor*adjThreshold {
			e.lastWatering[sensorIndex] = now
			return Decision{
				ShouldWater: true,
				Tier:        TierMedium,
				Duration:    durationTierMedium,
				WaterAmount: failsafeWaterML,
				IsFailsafe:  true,
			}
		}
		return Decision{}
	}

	started := time.Now()
	features := e.buildFeatures(sensorIndex, r, pa, now)
	raw := e.tree.Evaluate(features)
	adjusted := raw * (adjThreshold / referenceThreshold)
	tier := quantizeTier(adjusted)
	e.inferences++
	e.totalInference += time.Since(started)

	if tier == TierNone {
		return Decision{Tier: TierNone}
	}

	if !e.isTimeToWater(sensorIndex, now) {
		return Decision{Tier: tier, Suppressed: true}
	}

	e.lastWatering[sensorIndex] = now
	return Decision{
		ShouldWater: true,
		Tier:        tier,
		Duration:    tierDuration(tier),
		WaterAmount: float64(tier) * mlPerTierUnit,
	}
}

// buildFeatures linearly normalizes the seven pipeline inputs to [0,1].
func (e *DecisionEngine) buildFeatures(sensorIndex int, r models.SensorReading, pa PlantAssignment, now time.Time) [FeatureCount]float64 {
	hoursSince := maxHoursSince
	if last := e.lastWatering[sensorIndex]; !last.IsZero() {
		hoursSince = now.Sub(last).Hours()
	}

	var f [FeatureCount]float64
	f[FeatureMoisture] = clamp01(r.Moisture / models.MoistureMax)
	f[FeatureTemperature] = clamp01((r.Temperature - tempNormFloor) / tempNormSpan)
	f[FeatureHumidity] = clamp01(r.Humidity / models.HumidityMax)
	f[FeatureLight] = clamp01(r.Light / models.LightMax)
	f[FeatureTime] = clamp01(hoursSince / maxHoursSince)
	f[FeaturePlantType] = clamp01(float64(pa.Type) / float64(plantTypeCount-1))
	f[FeatureGrowthStage] = clamp01(float64(pa.Stage) / float64(growthStageCount-1))
	return f
}

// isTimeToWater enforces the minimum re-watering interval per channel.
// A channel that has never been watered is always eligible.
func (e *DecisionEngine) isTimeToWater(sensorIndex int, now time.Time) bool {
	last := e.lastWatering[sensorIndex]
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > e.minInterval
}

// LastWatering exposes the recorded timestamp for snapshots.
func (e *DecisionEngine) LastWatering(sensorIndex int) time.Time {
	if sensorIndex < 0 || sensorIndex >= len(e.lastWatering) {
		return time.Time{}
	}
	return e.lastWatering[sensorIndex]
}

// RestoreLastWatering reloads a persisted timestamp at startup.
func (e *DecisionEngine) RestoreLastWatering(sensorIndex int, t time.Time) {
	if sensorIndex >= 0 && sensorIndex < len(e.lastWatering) {
		e.lastWatering[sensorIndex] = t
	}
}

// AverageInference returns the mean pipeline latency.
func (e *DecisionEngine) AverageInference() time.Duration {
	if e.inferences == 0 {
		return 0
	}
	return e.totalInference / time.Duration(e.inferences)
}

// ResetStats clears the inference counters, not the watering history.
func (e *DecisionEngine) ResetStats() {
	e.inferences = 0
	e.totalInference = 0
}

func quantizeTier(adjusted float64) WaterTier {
	switch {
	case adjusted > tierHighCut:
		return TierHigh
	case adjusted > tierMediumCut:
		return TierMedium
	case adjusted > tierLowCut:
		return TierLow
	default:
		return TierNone
	}
}

func tierDuration(t WaterTier) time.Duration {
	switch t {
	case TierLow:
		return durationTierLow
	case TierMedium:
		return durationTierMedium
	case TierHigh:
		return durationTierHigh
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
