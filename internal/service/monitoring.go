package service

import (
	"context"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

type MonitoringService struct {
	handle    *controllerHandle
	stateRepo repository.StateRepo
}

func NewMonitoringService(h *controllerHandle, stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{handle: h, stateRepo: stateRepo}
}

// GetState returns a live snapshot of the running controller. The persisted
// row is only consulted when no controller is attached (maintenance tooling
// against a cold database).
func (s *MonitoringService) GetState(ctx context.Context) (models.ControllerState, error) {
	var st models.ControllerState
	var live bool
	s.handle.with(func(c *engine.Controller) {
		if c != nil {
			st = c.Snapshot(s.handle.now().UTC())
			live = true
		}
	})
	if live {
		return st, nil
	}

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.ControllerState{}, err
	}
	st.UpdatedAt = toUTC(st.UpdatedAt)
	return st, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
