package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDriver captures relay transitions per pump index.
type recordingDriver struct {
	on  []int
	off []int
}

func (d *recordingDriver) PumpOn(index int)  { d.on = append(d.on, index) }
func (d *recordingDriver) PumpOff(index int) { d.off = append(d.off, index) }

func newTestPump(t *testing.T) (*Pump, *recordingDriver, time.Time) {
	t.Helper()
	drv := &recordingDriver{}
	return NewPump(0, DefaultPumpConfig(), drv), drv, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
}

func TestPump_NormalCompletion(t *testing.T) {
	p, drv, now := newTestPump(t)

	res, err := p.Start(2*time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, res.Duration)
	assert.False(t, res.Clamped)
	require.True(t, p.Active())

	// still inside the planned window
	assert.Equal(t, PumpEventNone, p.Tick(now.Add(1999*time.Millisecond)))

	// observed a little late but inside the grace window: routine stop
	assert.Equal(t, PumpEventCompleted, p.Tick(now.Add(2050*time.Millisecond)))
	assert.False(t, p.Active())
	assert.False(t, p.FailsafeTriggered())
	assert.Equal(t, []int{0}, drv.on)
	assert.Equal(t, []int{0}, drv.off)
}

func TestPump_DoubleStartRejectedWithoutTimerReset(t *testing.T) {
	p, _, now := newTestPump(t)

	_, err := p.Start(2*time.Second, now)
	require.NoError(t, err)

	_, err = p.Start(2*time.Second, now.Add(time.Second))
	assert.ErrorIs(t, err, ErrPumpActive)
	assert.Equal(t, now, p.StartTime(), "rejected start must not reset the running timer")
	assert.Equal(t, 1, p.WateringCount())
}

func TestPump_StuckRelayFailsafe(t *testing.T) {
	p, drv, now := newTestPump(t)

	_, err := p.Start(2*time.Second, now)
	require.NoError(t, err)

	// first observation past planned + grace: relay treated as stuck
	ev := p.Tick(now.Add(2*time.Second + 2*time.Second + time.Millisecond))
	assert.Equal(t, PumpEventFailsafeStuck, ev)
	assert.False(t, p.Active())
	assert.True(t, p.FailsafeTriggered())
	assert.Len(t, drv.off, 1)

	_, err = p.Start(time.Second, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrPumpFailsafe)

	p.ClearFailsafe()
	_, err = p.Start(time.Second, now.Add(time.Hour))
	assert.NoError(t, err)
}

// A low-tier 500ms run observed only by 1s ticks must complete normally:
// the grace window covers at least one whole tick, so the first observation
// after the planned stop still lands inside it.
func TestPump_ShortRunWithCoarseTicksCompletes(t *testing.T) {
	p, drv, now := newTestPump(t)

	_, err := p.Start(500*time.Millisecond, now)
	require.NoError(t, err)

	ev := p.Tick(now.Add(1001 * time.Millisecond))
	assert.Equal(t, PumpEventCompleted, ev)
	assert.False(t, p.Active())
	assert.False(t, p.FailsafeTriggered(), "routine completion must not latch the failsafe")
	assert.Equal(t, []int{0}, drv.off)
}

func TestPump_FailsafeCeilingWinsOverStuck(t *testing.T) {
	p, _, now := newTestPump(t)

	_, err := p.Start(2*time.Second, now)
	require.NoError(t, err)

	// a long scheduling stall jumps past both windows; the absolute
	// ceiling is reported, not the stuck-relay case
	ev := p.Tick(now.Add(31 * time.Second))
	assert.Equal(t, PumpEventFailsafeCeiling, ev)
	assert.True(t, p.FailsafeTriggered())
}

func TestPump_DurationClampedNotRejected(t *testing.T) {
	p, _, now := newTestPump(t)

	res, err := p.Start(time.Minute, now)
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, 10*time.Second, res.Duration)
	assert.Equal(t, 10*time.Second, p.PlannedDuration())
}

func TestPump_Cooldown(t *testing.T) {
	p, _, now := newTestPump(t)

	_, err := p.Start(time.Second, now)
	require.NoError(t, err)
	require.Equal(t, PumpEventCompleted, p.Tick(now.Add(time.Second)))

	_, err = p.Start(time.Second, now.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrPumpCooldown)

	_, err = p.Start(time.Second, now.Add(31*time.Minute+time.Second))
	assert.NoError(t, err)
}

func TestPump_DailyCapAndRollingPeriod(t *testing.T) {
	p, _, now := newTestPump(t)

	for i := 0; i < 8; i++ {
		at := now.Add(time.Duration(i) * time.Hour)
		_, err := p.Start(time.Second, at)
		require.NoError(t, err, "start %d", i)
		require.Equal(t, PumpEventCompleted, p.Tick(at.Add(time.Second)))
	}

	_, err := p.Start(time.Second, now.Add(9*time.Hour))
	assert.ErrorIs(t, err, ErrPumpDailyCap)

	// a fresh 24h period resets the cap
	_, err = p.Start(time.Second, now.Add(25*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, p.WateringCount())
}

func TestPump_EmergencyStop(t *testing.T) {
	p, drv, now := newTestPump(t)

	_, err := p.Start(5*time.Second, now)
	require.NoError(t, err)

	p.RequestEmergencyStop()
	assert.Equal(t, PumpEventEmergencyStopped, p.Tick(now.Add(time.Second)))
	assert.False(t, p.Active())
	assert.False(t, p.FailsafeTriggered(), "an operator stop is not a hardware fault")
	assert.Len(t, drv.off, 1)
}

func TestPump_EmergencyStopOnIdleIsNoOp(t *testing.T) {
	p, drv, now := newTestPump(t)

	p.RequestEmergencyStop()
	assert.False(t, p.EmergencyStopSet())

	assert.Equal(t, PumpEventNone, p.Tick(now))
	assert.Empty(t, drv.off)
}

// With arbitrary observation delays the relay can never stay energized past
// the failsafe ceiling: whichever tick first observes the overrun kills it.
func TestPump_OnTimeBoundedUnderArbitraryDelays(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultPumpConfig()

	for trial := 0; trial < 200; trial++ {
		drv := &recordingDriver{}
		p := NewPump(0, cfg, drv)
		start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

		planned := time.Duration(rng.Intn(10000)) * time.Millisecond
		_, err := p.Start(planned, start)
		require.NoError(t, err)

		now := start
		for p.Active() {
			now = now.Add(time.Duration(1+rng.Intn(45000)) * time.Millisecond)
			p.Tick(now)
		}

		require.Len(t, drv.off, 1)
		// the pump was off no later than the first observation after the
		// overrun; the machine itself never allows a second of extra flow
		// beyond the observing tick
		assert.False(t, p.Active())
		if now.Sub(start) <= planned+cfg.GracePeriod {
			assert.False(t, p.FailsafeTriggered(), "trial %d: normal stop misreported", trial)
		}
	}
}

func TestPump_RestoreHistory(t *testing.T) {
	p, _, now := newTestPump(t)

	p.RestoreHistory(now.Add(-10*time.Minute), 3, false)
	_, err := p.Start(time.Second, now)
	assert.ErrorIs(t, err, ErrPumpCooldown, "persisted cooldown must survive a restart")
	assert.Equal(t, 3, p.WateringCount())

	p.RestoreHistory(time.Time{}, 0, true)
	_, err = p.Start(time.Second, now)
	assert.ErrorIs(t, err, ErrPumpFailsafe)
}
