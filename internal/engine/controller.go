package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"smart_irrigation/internal/models"
)

// Fallback values substituted for invalid non-critical channels. Moisture
// is the critical channel and has no fallback; an invalid moisture reading
// skips the tick for that channel.
const (
	fallbackTemperature = 22.5
	fallbackHumidity    = 60.0
	fallbackLight       = 500.0
)

// Config is the full core configuration assembled by the composition root.
type Config struct {
	Channels            int
	Assignments         []PlantAssignment
	MinWateringInterval time.Duration
	FailsafeEnabled     bool
	Pump                PumpConfig
	Anomaly             AnomalyConfig
	Supervisor          SupervisorConfig
}

// DefaultConfig mirrors the four-channel field deployment.
func DefaultConfig() Config {
	return Config{
		Channels: 4,
		Assignments: []PlantAssignment{
			{Tomato, Vegetative},
			{Lettuce, Vegetative},
			{Basil, Flowering},
			{Mint, Mature},
		},
		MinWateringInterval: 6 * time.Hour,
		FailsafeEnabled:     true,
		Pump:                DefaultPumpConfig(),
		Anomaly:             DefaultAnomalyConfig(),
		Supervisor:          DefaultSupervisorConfig(),
	}
}

var ErrBadConfig = errors.New("invalid controller config")

// TickReport is everything one control tick produced: log entries for the
// event repository and telemetry records for the gateway publisher.
type TickReport struct {
	Events    []models.IrrigationEvent
	Telemetry []models.TelemetryRecord
}

// Controller is the single decision-maker of the control unit. It owns the
// anomaly detectors, the decision engine, one pump state machine per
// channel and the health supervisor, and advances all of them synchronously
// inside Tick. Nothing here blocks or sleeps; callers own scheduling and
// serialization.
type Controller struct {
	cfg        Config
	detectors  []*AnomalyDetector
	engine     *DecisionEngine
	pumps      []*Pump
	supervisor *Supervisor
	profiles   *ProfileTable

	counters     models.Counters
	lastReadings []models.SensorReading
	lastScores   []float64
	advisory     *models.Advisory
}

// NewController wires the core from config. The inference tree is the
// built-in baseline; a trained replacement can be validated and swapped in
// before the first tick.
func NewController(cfg Config, driver PumpDriver) (*Controller, error) {
	return NewControllerWithTree(cfg, driver, DefaultIrrigationTree())
}

func NewControllerWithTree(cfg Config, driver PumpDriver, tree *InferenceTree) (*Controller, error) {
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: channels must be positive", ErrBadConfig)
	}
	if len(cfg.Assignments) != cfg.Channels {
		return nil, fmt.Errorf("%w: %d assignments for %d channels", ErrBadConfig, len(cfg.Assignments), cfg.Channels)
	}
	if cfg.Pump.FailsafeCeiling <= cfg.Pump.HardMaxDuration {
		return nil, fmt.Errorf("%w: failsafe ceiling must exceed hard max duration", ErrBadConfig)
	}
	if cfg.Pump.GracePeriod <= 0 {
		return nil, fmt.Errorf("%w: pump grace period must be positive", ErrBadConfig)
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	profiles := NewProfileTable()
	c := &Controller{
		cfg:          cfg,
		detectors:    make([]*AnomalyDetector, cfg.Channels),
		engine:       NewDecisionEngine(cfg.Channels, tree, profiles, cfg.MinWateringInterval),
		pumps:        make([]*Pump, cfg.Channels),
		supervisor:   NewSupervisor(cfg.Channels, cfg.Supervisor),
		profiles:     profiles,
		lastReadings: make([]models.SensorReading, cfg.Channels),
		lastScores:   make([]float64, cfg.Channels),
	}
	c.engine.SetFailsafeMode(cfg.FailsafeEnabled)
	for i := 0; i < cfg.Channels; i++ {
		c.detectors[i] = NewAnomalyDetector(cfg.Anomaly)
		c.pumps[i] = NewPump(i, cfg.Pump, driver)
	}
	return c, nil
}

// Tick runs one control-loop iteration. Pump timers are always advanced
// before any new decision is evaluated, so safety checks run at least once
// per tick even under decision load.
func (c *Controller) Tick(now time.Time, readings []models.SensorReading) TickReport {
	var rep TickReport
	c.supervisor.KickWatchdog(now)

	c.advancePumps(now, &rep)

	for i := 0; i < c.cfg.Channels && i < len(readings); i++ {
		c.processChannel(i, readings[i], now, &rep)
	}

	c.pollSupervisor(now, &rep)
	return rep
}

func (c *Controller) advancePumps(now time.Time, rep *TickReport) {
	for i, p := range c.pumps {
		switch p.Tick(now) {
		case PumpEventCompleted:
			// routine; watering was already logged at start
		case PumpEventEmergencyStopped:
			rep.Events = append(rep.Events, models.IrrigationEvent{
				OccurredAt:  now,
				Type:        models.EventEmergencyStop,
				Description: fmt.Sprintf("Pump %d emergency stopped", i),
			})
		case PumpEventFailsafeCeiling:
			rep.Events = append(rep.Events, c.pumpFaultEvent(i, now, "absolute failsafe ceiling exceeded"))
			c.escalate(now, rep)
		case PumpEventFailsafeStuck:
			rep.Events = append(rep.Events, c.pumpFaultEvent(i, now, "stuck relay detected past grace period"))
			c.escalate(now, rep)
		}
	}
}

func (c *Controller) pumpFaultEvent(index int, now time.Time, why string) models.IrrigationEvent {
	return models.IrrigationEvent{
		OccurredAt:  now,
		Type:        models.EventPumpFault,
		Description: fmt.Sprintf("Pump %d forced off: %s", index, why),
		Metadata:    map[string]any{"pump": index},
	}
}

func (c *Controller) escalate(now time.Time, rep *TickReport) {
	if c.supervisor.EscalateMultiPumpFailure(now, c.pumps) {
		rep.Events = append(rep.Events, models.IrrigationEvent{
			OccurredAt:  now,
			Type:        models.EventSafeMode,
			Description: "Global safe mode: multiple pump failsafes",
		})
	}
}

func (c *Controller) processChannel(i int, r models.SensorReading, now time.Time, rep *TickReport) {
	validMoisture := finiteIn(r.Moisture, models.MoistureMin, models.MoistureMax)
	c.supervisor.ObserveReading(i, validMoisture)
	c.lastReadings[i] = r

	if !validMoisture || c.supervisor.ChannelFailed(i) {
		// the critical channel cannot be trusted; no decision this tick
		c.counters.SkippedTicks++
		rep.Telemetry = append(rep.Telemetry, c.telemetryRecord(i, r, Decision{}))
		return
	}

	// non-critical channels degrade to fixed fallbacks instead of
	// blocking irrigation
	if !finiteIn(r.Temperature, models.TemperatureMin, models.TemperatureMax) {
		r.Temperature = fallbackTemperature
	}
	if !finiteIn(r.Humidity, models.HumidityMin, models.HumidityMax) {
		r.Humidity = fallbackHumidity
	}
	if !finiteIn(r.Light, models.LightMin, models.LightMax) {
		r.Light = fallbackLight
	}

	fault := c.detectors[i].IsFault(r)
	c.lastScores[i] = c.detectors[i].Ingest(r)
	if fault {
		c.counters.Anomalies++
		rep.Events = append(rep.Events, models.IrrigationEvent{
			OccurredAt:  now,
			Type:        models.EventAnomaly,
			Description: fmt.Sprintf("Sensor %d anomalous reading", i),
			Metadata: map[string]any{
				"sensor":   i,
				"moisture": r.Moisture,
				"score":    c.lastScores[i],
			},
		})
	}

	if c.supervisor.SafeModeActive() {
		rep.Telemetry = append(rep.Telemetry, c.telemetryRecord(i, r, Decision{}))
		return
	}

	d := c.engine.Decide(i, r, c.cfg.Assignments[i], fault, now)
	c.counters.Decisions++
	if d.Suppressed {
		c.counters.Suppressed++
	}

	if d.ShouldWater {
		c.startWatering(i, d, now, rep)
	}
	rep.Telemetry = append(rep.Telemetry, c.telemetryRecord(i, r, d))
	c.counters.AvgInferenceUs = c.engine.AverageInference().Microseconds()
}

func (c *Controller) startWatering(i int, d Decision, now time.Time, rep *TickReport) {
	res, err := c.pumps[i].Start(d.Duration, now)
	if err != nil {
		// a rejected start is a control decision, not a failure
		c.counters.Suppressed++
		return
	}

	evType := models.EventWatering
	if d.IsFailsafe {
		evType = models.EventFailsafe
		c.counters.FailsafeWaterings++
	}
	c.counters.Waterings++
	meta := map[string]any{
		"pump":        i,
		"tier":        d.Tier.String(),
		"duration_ms": res.Duration.Milliseconds(),
		"amount_ml":   d.WaterAmount,
	}
	if res.Clamped {
		meta["clamped"] = true
	}
	rep.Events = append(rep.Events, models.IrrigationEvent{
		OccurredAt:  now,
		Type:        evType,
		Description: fmt.Sprintf("Pump %d watering %s for %dms", i, d.Tier, res.Duration.Milliseconds()),
		Metadata:    meta,
	})
}

func (c *Controller) pollSupervisor(now time.Time, rep *TickReport) {
	finding := c.supervisor.Poll(now, c.pumps)
	if finding.WatchdogOverdue {
		rep.Events = append(rep.Events, models.IrrigationEvent{
			OccurredAt:  now,
			Type:        models.EventError,
			Description: "Liveness watchdog serviced late",
		})
	}
	if finding.EnteredSafeMode {
		rep.Events = append(rep.Events, models.IrrigationEvent{
			OccurredAt:  now,
			Type:        models.EventSafeMode,
			Description: "Global safe mode: " + finding.Reason,
		})
	}
}

func (c *Controller) telemetryRecord(i int, r models.SensorReading, d Decision) models.TelemetryRecord {
	rec := models.TelemetryRecord{
		SensorIndex: i,
		Moisture:    clampRange(r.Moisture, models.MoistureMin, models.MoistureMax),
		Temperature: clampRange(r.Temperature, models.TemperatureMin, models.TemperatureMax),
		Humidity:    clampRange(r.Humidity, models.HumidityMin, models.HumidityMax),
		Light:       clampRange(r.Light, models.LightMin, models.LightMax),
		Watered:     d.ShouldWater,
		TimestampMs: r.TimestampMs,
	}
	if d.ShouldWater {
		amount := d.WaterAmount
		rec.WaterAmount = &amount
	}
	return rec
}

// --- commands ---

// EmergencyStopAll flags every active pump for shutdown on its next tick.
func (c *Controller) EmergencyStopAll() {
	for _, p := range c.pumps {
		p.RequestEmergencyStop()
	}
}

// Resume clears global safe mode; the only exit path, driven by an explicit
// operator command.
func (c *Controller) Resume() {
	c.supervisor.Resume(c.pumps)
}

// ResetCounters clears the running statistics. It does not touch safe mode
// or watering history.
func (c *Controller) ResetCounters() {
	c.counters = models.Counters{}
	c.engine.ResetStats()
}

// AddDroppedTelemetry folds the publisher's drop count into the status
// counters.
func (c *Controller) AddDroppedTelemetry(n uint64) {
	c.counters.DroppedTelemetry += n
}

// SetThresholdOverride installs a runtime override for a species.
func (c *Controller) SetThresholdOverride(pt PlantType, o ThresholdOverride) error {
	return c.profiles.SetOverride(pt, o)
}

// ClearThresholdOverride restores a species to its base profile.
func (c *Controller) ClearThresholdOverride(pt PlantType) error {
	return c.profiles.ClearOverride(pt)
}

// Profile returns the effective profile for a species.
func (c *Controller) Profile(pt PlantType) (PlantProfile, bool) {
	return c.profiles.Profile(pt), c.profiles.HasOverride(pt)
}

// SetAdvisory stores the latest gateway advisory. Purely informational; the
// local pipeline never depends on it.
func (c *Controller) SetAdvisory(a models.Advisory) { c.advisory = &a }

// Advisory returns the last received gateway advisory, if any.
func (c *Controller) Advisory() *models.Advisory { return c.advisory }

// SafeModeActive reports whether actuation authority is revoked.
func (c *Controller) SafeModeActive() bool { return c.supervisor.SafeModeActive() }

// Snapshot assembles the externally visible controller state.
func (c *Controller) Snapshot(now time.Time) models.ControllerState {
	st := models.ControllerState{
		ID:        1,
		Pumps:     make([]models.PumpSnapshot, len(c.pumps)),
		Channels:  make([]models.ChannelSnapshot, c.cfg.Channels),
		Failsafe:  c.supervisor.SafeMode(),
		Counters:  c.counters,
		UpdatedAt: now,
	}
	for i, p := range c.pumps {
		st.Pumps[i] = models.PumpSnapshot{
			Index:                 i,
			IsActive:              p.Active(),
			StartTime:             p.StartTime(),
			PlannedDurationMs:     p.PlannedDuration().Milliseconds(),
			LastWateringTime:      p.LastWatering(),
			WateringCountInPeriod: p.WateringCount(),
			EmergencyStop:         p.EmergencyStopSet(),
			FailsafeTriggered:     p.FailsafeTriggered(),
		}
	}
	for i := 0; i < c.cfg.Channels; i++ {
		a := c.cfg.Assignments[i]
		st.Channels[i] = models.ChannelSnapshot{
			Index:        i,
			PlantType:    a.Type.String(),
			GrowthStage:  a.Stage.String(),
			LastReading:  c.lastReadings[i],
			AnomalyScore: c.lastScores[i],
			Failed:       c.supervisor.ChannelFailed(i),
		}
	}
	return st
}

// Restore reloads persisted state at startup: watering history feeds the
// cooldown and daily-cap checks, and a latched safe mode stays latched
// across restarts.
func (c *Controller) Restore(st models.ControllerState) {
	for _, ps := range st.Pumps {
		if ps.Index < 0 || ps.Index >= len(c.pumps) {
			continue
		}
		c.pumps[ps.Index].RestoreHistory(ps.LastWateringTime, ps.WateringCountInPeriod, ps.FailsafeTriggered)
		c.engine.RestoreLastWatering(ps.Index, ps.LastWateringTime)
	}
	if st.Failsafe.Active {
		c.supervisor.RestoreSafeMode(st.Failsafe)
	}
	c.counters = st.Counters
}

func finiteIn(v, lo, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= lo && v <= hi
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
