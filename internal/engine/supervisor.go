package engine

import (
	"time"

	"smart_irrigation/internal/models"
)

// SupervisorConfig tunes the system-level health checks.
type SupervisorConfig struct {
	CheckInterval     time.Duration // periodic aggregate health check
	WatchdogTimeout   time.Duration // loop liveness window
	ConsecutiveErrors int           // invalid readings before a channel is failed
}

func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		CheckInterval:     30 * time.Second,
		WatchdogTimeout:   10 * time.Second,
		ConsecutiveErrors: 3,
	}
}

// channelHealth tracks a sensor channel's recent validity. One glitch is
// tolerated; only a run of consecutive invalid readings fails the channel.
type channelHealth struct {
	consecutiveInvalid int
	failed             bool
}

// SupervisorFinding is what a periodic check surfaced.
type SupervisorFinding struct {
	EnteredSafeMode bool
	Reason          string
	WatchdogOverdue bool
}

// Supervisor aggregates pump and sensor health and owns the global
// safe-mode latch. Safe mode never self-clears; only an explicit Resume
// releases it, because the triggering fault classes need a human to confirm
// the hardware is sound.
type Supervisor struct {
	cfg      SupervisorConfig
	channels []channelHealth

	lastCheck    time.Time
	watchdogKick time.Time

	safeMode models.FailsafeStatus
}

func NewSupervisor(channels int, cfg SupervisorConfig) *Supervisor {
	if cfg.CheckInterval <= 0 {
		cfg = DefaultSupervisorConfig()
	}
	return &Supervisor{cfg: cfg, channels: make([]channelHealth, channels)}
}

// KickWatchdog marks the control loop alive. Called once per tick.
func (s *Supervisor) KickWatchdog(now time.Time) { s.watchdogKick = now }

// ObserveReading feeds per-channel validity into the consecutive-error
// counter.
func (s *Supervisor) ObserveReading(channel int, valid bool) {
	if channel < 0 || channel >= len(s.channels) {
		return
	}
	ch := &s.channels[channel]
	if valid {
		ch.consecutiveInvalid = 0
		ch.failed = false
		return
	}
	ch.consecutiveInvalid++
	if ch.consecutiveInvalid >= s.cfg.ConsecutiveErrors {
		ch.failed = true
	}
}

// ChannelFailed reports whether the channel is currently marked failed.
func (s *Supervisor) ChannelFailed(channel int) bool {
	if channel < 0 || channel >= len(s.channels) {
		return false
	}
	return s.channels[channel].failed
}

// Poll runs the periodic aggregate check. Global safe mode activates when
// two or more pumps have latched their failsafe (a systemic fault, not
// independent wear) or when a majority of sensor channels are failed. Once
// active all pumps are forced off and new starts are refused until Resume.
func (s *Supervisor) Poll(now time.Time, pumps []*Pump) SupervisorFinding {
	var finding SupervisorFinding
	if !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.cfg.CheckInterval {
		return finding
	}
	s.lastCheck = now

	if !s.watchdogKick.IsZero() && now.Sub(s.watchdogKick) > s.cfg.WatchdogTimeout {
		finding.WatchdogOverdue = true
	}

	if s.safeMode.Active {
		// sticky; keep pumps down in case anything slipped through
		for _, p := range pumps {
			p.ForceOff(now)
		}
		return finding
	}

	tripped := 0
	for _, p := range pumps {
		if p.FailsafeTriggered() {
			tripped++
		}
	}
	failedChannels := 0
	for _, ch := range s.channels {
		if ch.failed {
			failedChannels++
		}
	}

	switch {
	case tripped >= 2:
		s.enterSafeMode(now, "multiple pump failsafes", pumps)
		finding.EnteredSafeMode = true
		finding.Reason = s.safeMode.Reason
	case len(s.channels) > 0 && failedChannels > len(s.channels)/2:
		s.enterSafeMode(now, "majority of sensor channels failed", pumps)
		finding.EnteredSafeMode = true
		finding.Reason = s.safeMode.Reason
	}
	return finding
}

// EscalateMultiPumpFailure is the state machines' direct path into safe
// mode, invoked as soon as a second pump latches rather than waiting for
// the next periodic check.
func (s *Supervisor) EscalateMultiPumpFailure(now time.Time, pumps []*Pump) bool {
	if s.safeMode.Active {
		return false
	}
	tripped := 0
	for _, p := range pumps {
		if p.FailsafeTriggered() {
			tripped++
		}
	}
	if tripped < 2 {
		return false
	}
	s.enterSafeMode(now, "multiple pump failsafes", pumps)
	return true
}

func (s *Supervisor) enterSafeMode(now time.Time, reason string, pumps []*Pump) {
	s.safeMode = models.FailsafeStatus{Active: true, Reason: reason, ActivatedAt: now}
	for _, p := range pumps {
		p.ForceOff(now)
	}
}

// SafeMode returns the current global failsafe status.
func (s *Supervisor) SafeMode() models.FailsafeStatus { return s.safeMode }

// SafeModeActive reports whether actuation authority is revoked.
func (s *Supervisor) SafeModeActive() bool { return s.safeMode.Active }

// Resume clears global safe mode and the per-pump failsafe latches. This is
// the only way out; it represents explicit operator acknowledgment.
func (s *Supervisor) Resume(pumps []*Pump) {
	s.safeMode = models.FailsafeStatus{}
	for _, p := range pumps {
		p.ClearFailsafe()
	}
	for i := range s.channels {
		s.channels[i] = channelHealth{}
	}
}

// RestoreSafeMode reloads a persisted safe-mode latch at startup so a
// restart cannot silently clear it.
func (s *Supervisor) RestoreSafeMode(st models.FailsafeStatus) { s.safeMode = st }
