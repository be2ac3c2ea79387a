package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

// ControlLoopService drives the controller: one tick samples the sensors,
// advances every state machine, persists the snapshot and forwards
// telemetry. The loop is the only writer of controller state.
type ControlLoopService struct {
	handle    *controllerHandle
	source    SensorSource
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	telemetry TelemetryPublisher
	log       *logger.Logger

	started time.Time
}

func NewControlLoopService(h *controllerHandle, source SensorSource, stateRepo repository.StateRepo, eventRepo repository.EventRepo, telemetry TelemetryPublisher, log *logger.Logger) *ControlLoopService {
	return &ControlLoopService{
		handle:    h,
		source:    source,
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		telemetry: telemetry,
		log:       log,
	}
}

// Run ticks at the given interval until ctx is canceled. Persistence and
// telemetry failures are logged and skipped; the control core must keep
// ticking even when the database or the uplink is down.
func (s *ControlLoopService) Run(ctx context.Context, tick time.Duration) {
	s.started = s.handle.now()

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.step(ctx, now)
		}
	}
}

func (s *ControlLoopService) step(ctx context.Context, now time.Time) {
	nowMs := now.Sub(s.started).Milliseconds()

	readings := s.source.Sample(nowMs)

	var rep engine.TickReport
	var st models.ControllerState
	s.handle.with(func(c *engine.Controller) {
		rep = c.Tick(now, readings)
		if s.telemetry != nil {
			c.AddDroppedTelemetry(s.countDrops(rep.Telemetry))
		}
		st = c.Snapshot(now.UTC())
	})

	for _, ev := range rep.Events {
		if ev.EventID == "" {
			ev.EventID = uuid.NewString()
		}
		if err := s.eventRepo.Append(ctx, ev); err != nil {
			s.log.Errorw("append event", "type", ev.Type, "error", err)
		}
	}

	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Errorw("persist controller state", "error", err)
	}
}

// countDrops forwards the tick's telemetry and returns how many records the
// publisher discarded.
func (s *ControlLoopService) countDrops(recs []models.TelemetryRecord) uint64 {
	var dropped uint64
	for _, rec := range recs {
		if !s.telemetry.Publish(rec) {
			dropped++
		}
	}
	return dropped
}
