package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

// Advisory forecasts beyond this horizon are rejected; the gateway sends
// at most a week of hourly values.
const maxForecastHours = 168

var (
	errAdvisoryTooLarge   = errors.New("advisory forecast exceeds the hourly horizon")
	errAdvisoryConfidence = errors.New("advisory anomaly confidence must be within [0,1]")
)

type IrrigationService struct {
	handle    *controllerHandle
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
}

func NewIrrigationService(h *controllerHandle, stateRepo repository.StateRepo, eventRepo repository.EventRepo) *IrrigationService {
	return &IrrigationService{handle: h, stateRepo: stateRepo, eventRepo: eventRepo}
}

// EmergencyStop flags every active pump for shutdown on the next control
// tick and logs the command. The actual relay drop happens inside the loop;
// the command itself never touches hardware.
func (s *IrrigationService) EmergencyStop(ctx context.Context) error {
	s.handle.with(func(c *engine.Controller) {
		c.EmergencyStopAll()
	})
	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.handle.now().UTC(),
		Type:        models.EventEmergencyStop,
		Description: "Operator requested emergency stop of all pumps",
	})
}

// Resume clears global safe mode and the per-pump failsafe latches. This is
// the only path out of safe mode.
func (s *IrrigationService) Resume(ctx context.Context) error {
	now := s.handle.now().UTC()
	var st models.ControllerState
	s.handle.with(func(c *engine.Controller) {
		c.Resume()
		st = c.Snapshot(now)
	})
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return err
	}
	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        models.EventResume,
		Description: "Operator cleared safe mode; actuation re-enabled",
	})
}

// Reset clears the running counters. Watering history, overrides and the
// safe-mode latch are untouched.
func (s *IrrigationService) Reset(ctx context.Context) error {
	now := s.handle.now().UTC()
	var st models.ControllerState
	s.handle.with(func(c *engine.Controller) {
		c.ResetCounters()
		st = c.Snapshot(now)
	})
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return err
	}
	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        models.EventReset,
		Description: "Operator reset system counters",
	})
}

// SubmitAdvisory stores the latest gateway advisory after bounds checks.
// Advisories are informational only; no decision path depends on them, so a
// rejected advisory costs nothing but the log line.
func (s *IrrigationService) SubmitAdvisory(ctx context.Context, a models.Advisory) error {
	if len(a.Forecast) > maxForecastHours {
		return errAdvisoryTooLarge
	}
	if a.AnomalyConfidence < 0 || a.AnomalyConfidence > 1 {
		return errAdvisoryConfidence
	}
	if a.ReceivedAtMs == 0 {
		a.ReceivedAtMs = s.handle.now().UnixMilli()
	}
	s.handle.with(func(c *engine.Controller) {
		c.SetAdvisory(a)
	})
	return s.eventRepo.Append(ctx, models.IrrigationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.handle.now().UTC(),
		Type:        models.EventAdvisory,
		Description: fmt.Sprintf("Gateway advisory received (%dh forecast, confidence %.2f)", len(a.Forecast), a.AnomalyConfidence),
	})
}
