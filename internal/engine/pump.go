package engine

import (
	"errors"
	"time"
)

// PumpDriver issues the physical relay signals. Implementations must be
// non-blocking; the state machine calls them from the control loop.
type PumpDriver interface {
	PumpOn(index int)
	PumpOff(index int)
}

// PumpConfig carries the per-pump safety knobs.
type PumpConfig struct {
	Cooldown        time.Duration // minimum gap between two starts
	DailyCap        int           // max waterings per rolling 24h period
	HardMaxDuration time.Duration // requested durations are clamped here
	FailsafeCeiling time.Duration // absolute on-time backstop, > HardMaxDuration
	GracePeriod     time.Duration // stuck-relay detection window past planned stop
}

// DefaultPumpConfig matches the deployed hardware: a 100 ml/s pump where
// anything past 30s of continuous flow means something is wrong. The grace
// period must span at least one control tick, or a short run's completion
// window can pass entirely between two observations and a routine stop gets
// misread as a stuck relay.
func DefaultPumpConfig() PumpConfig {
	return PumpConfig{
		Cooldown:        30 * time.Minute,
		DailyCap:        8,
		HardMaxDuration: 10 * time.Second,
		FailsafeCeiling: 30 * time.Second,
		GracePeriod:     2 * time.Second,
	}
}

var (
	ErrPumpActive     = errors.New("pump already active")
	ErrPumpCooldown   = errors.New("pump cooldown not elapsed")
	ErrPumpDailyCap   = errors.New("pump daily watering cap reached")
	ErrPumpFailsafe   = errors.New("pump failsafe latched")
	ErrSafeModeActive = errors.New("global safe mode active")
)

// PumpEventKind classifies what a tick did to an active pump.
type PumpEventKind int

const (
	PumpEventNone PumpEventKind = iota
	PumpEventCompleted
	PumpEventEmergencyStopped
	PumpEventFailsafeCeiling
	PumpEventFailsafeStuck
)

// StartResult reports start-time adjustments to the caller.
type StartResult struct {
	Duration time.Duration // actual planned duration after clamping
	Clamped  bool
}

// Pump is the actuation state machine for one physical pump: Idle <-> Active
// with layered failsafes. Timing is advanced by polling Tick with the
// current time, never by sleeping.
type Pump struct {
	index  int
	cfg    PumpConfig
	driver PumpDriver

	active          bool
	startTime       time.Time
	plannedDuration time.Duration
	lastWatering    time.Time
	periodStart     time.Time
	periodCount     int
	emergencyStop   bool
	failsafe        bool
}

func NewPump(index int, cfg PumpConfig, driver PumpDriver) *Pump {
	return &Pump{index: index, cfg: cfg, driver: driver}
}

// Start validates and begins a watering run. Excess duration is clamped to
// the hard maximum rather than rejected: under-watering is the safer failure
// direction than refusing to water at all.
func (p *Pump) Start(duration time.Duration, now time.Time) (StartResult, error) {
	var res StartResult
	if p.failsafe {
		return res, ErrPumpFailsafe
	}
	if p.active {
		return res, ErrPumpActive
	}
	if !p.lastWatering.IsZero() && now.Sub(p.lastWatering) < p.cfg.Cooldown {
		return res, ErrPumpCooldown
	}
	p.rollPeriod(now)
	if p.periodCount >= p.cfg.DailyCap {
		return res, ErrPumpDailyCap
	}

	if duration < 0 {
		duration = 0
	}
	if duration > p.cfg.HardMaxDuration {
		duration = p.cfg.HardMaxDuration
		res.Clamped = true
	}
	res.Duration = duration

	p.active = true
	p.startTime = now
	p.plannedDuration = duration
	p.emergencyStop = false
	p.periodCount++
	p.driver.PumpOn(p.index)
	return res, nil
}

// Tick advances the state machine. Checked in strict severity order: the
// emergency-stop flag, the absolute failsafe ceiling, the stuck-relay
// window, then normal completion. Idle pumps only roll the daily period.
func (p *Pump) Tick(now time.Time) PumpEventKind {
	p.rollPeriod(now)
	if !p.active {
		// emergency stop on an idle pump is a no-op; clear it so a later
		// start is not immediately killed by a stale flag
		p.emergencyStop = false
		return PumpEventNone
	}

	if p.emergencyStop {
		p.stop(now)
		p.emergencyStop = false
		return PumpEventEmergencyStopped
	}

	elapsed := now.Sub(p.startTime)

	if elapsed > p.cfg.FailsafeCeiling {
		p.stop(now)
		p.failsafe = true
		return PumpEventFailsafeCeiling
	}
	if elapsed > p.plannedDuration+p.cfg.GracePeriod {
		// the stop should have been observed within the grace window;
		// treat the relay as stuck
		p.stop(now)
		p.failsafe = true
		return PumpEventFailsafeStuck
	}
	if elapsed >= p.plannedDuration {
		p.stop(now)
		return PumpEventCompleted
	}
	return PumpEventNone
}

func (p *Pump) stop(now time.Time) {
	p.driver.PumpOff(p.index)
	p.active = false
	p.lastWatering = now
}

// rollPeriod resets the daily watering count on a rolling 24h boundary.
func (p *Pump) rollPeriod(now time.Time) {
	if p.periodStart.IsZero() {
		p.periodStart = now
		return
	}
	if now.Sub(p.periodStart) >= 24*time.Hour {
		p.periodStart = now
		p.periodCount = 0
	}
}

// RequestEmergencyStop flags the pump for shutdown on the next tick. The
// flag is idempotent.
func (p *Pump) RequestEmergencyStop() {
	if p.active {
		p.emergencyStop = true
	}
}

// ForceOff immediately drops the relay and idles the pump, used by the
// supervisor when entering global safe mode.
func (p *Pump) ForceOff(now time.Time) {
	if p.active {
		p.stop(now)
	}
}

// ClearFailsafe unlatches the per-pump failsafe flag after operator
// acknowledgment.
func (p *Pump) ClearFailsafe() { p.failsafe = false }

func (p *Pump) Active() bool            { return p.active }
func (p *Pump) FailsafeTriggered() bool { return p.failsafe }
func (p *Pump) WateringCount() int      { return p.periodCount }
func (p *Pump) LastWatering() time.Time { return p.lastWatering }
func (p *Pump) StartTime() time.Time    { return p.startTime }

func (p *Pump) PlannedDuration() time.Duration { return p.plannedDuration }
func (p *Pump) EmergencyStopSet() bool         { return p.emergencyStop }

// RestoreHistory reloads persisted watering history at startup so cooldowns
// and daily caps survive a restart.
func (p *Pump) RestoreHistory(lastWatering time.Time, periodCount int, failsafe bool) {
	p.lastWatering = lastWatering
	p.periodCount = periodCount
	p.failsafe = failsafe
}
