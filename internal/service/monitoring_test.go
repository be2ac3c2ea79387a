package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
)

// monitoringStateRepoStub is a local, uniquely named test stub that satisfies repository.StateRepo.
type monitoringStateRepoStub struct {
	loadResp   models.ControllerState
	loadErr    error
	saveErr    error
	savedCalls []models.ControllerState
}

func (s *monitoringStateRepoStub) Load(ctx context.Context) (models.ControllerState, error) {
	return s.loadResp, s.loadErr
}

func (s *monitoringStateRepoStub) Save(ctx context.Context, state models.ControllerState) error {
	s.savedCalls = append(s.savedCalls, state)
	return s.saveErr
}

// fakeClock returns a fixed instant.
type fakeClock struct{ at time.Time }

func (c fakeClock) Now() time.Time { return c.at }

// nullDriver satisfies engine.PumpDriver without hardware.
type nullDriver struct{}

func (nullDriver) PumpOn(int)  {}
func (nullDriver) PumpOff(int) {}

func newLiveHandle(t *testing.T, at time.Time) *controllerHandle {
	t.Helper()
	ctrl, err := engine.NewController(engine.DefaultConfig(), nullDriver{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return &controllerHandle{ctrl: ctrl, clock: fakeClock{at: at}}
}

func TestMonitoringService_GetState_LiveSnapshot(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	h := newLiveHandle(t, at)

	// repo would error; a live controller means it is never consulted
	repo := &monitoringStateRepoStub{loadErr: errors.New("db down")}
	svc := NewMonitoringService(h, repo)

	got, err := svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("snapshot ID: want 1, got %d", got.ID)
	}
	if len(got.Pumps) != 4 || len(got.Channels) != 4 {
		t.Fatalf("snapshot shape: %d pumps, %d channels", len(got.Pumps), len(got.Channels))
	}
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("UpdatedAt: want %v, got %v", at, got.UpdatedAt)
	}
}

func TestMonitoringService_GetState_FallsBackToRepo(t *testing.T) {
	t.Parallel()

	nonUTC := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", -3*3600)) // UTC-3
	repo := &monitoringStateRepoStub{
		loadResp: models.ControllerState{ID: 1, UpdatedAt: nonUTC},
	}
	h := &controllerHandle{clock: engine.SystemClock()} // no controller attached
	svc := NewMonitoringService(h, repo)

	got, err := svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("ID: want 1, got %d", got.ID)
	}
	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("UpdatedAt must be UTC, got %v", got.UpdatedAt.Location())
	}
	wantUTC := time.Date(2026, 1, 2, 6, 4, 5, 0, time.UTC) // 03:04:05 -03:00 => 06:04:05 UTC
	if !got.UpdatedAt.Equal(wantUTC) {
		t.Fatalf("UpdatedAt: want %v, got %v", wantUTC, got.UpdatedAt)
	}
}

func TestMonitoringService_GetState_PropagatesRepoError(t *testing.T) {
	t.Parallel()

	repo := &monitoringStateRepoStub{loadErr: errors.New("db down")}
	h := &controllerHandle{clock: engine.SystemClock()}
	svc := NewMonitoringService(h, repo)

	got, err := svc.GetState(context.Background())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if got.ID != 0 {
		t.Fatalf("expected zero state ID, got %d", got.ID)
	}
}

func TestToUTC(t *testing.T) {
	t.Parallel()

	t.Run("zero time is preserved", func(t *testing.T) {
		t.Parallel()
		var z time.Time
		if got := toUTC(z); !got.IsZero() {
			t.Fatalf("expected zero time, got %v", got)
		}
	})

	t.Run("non-zero converted to UTC", func(t *testing.T) {
		t.Parallel()
		local := time.Date(2026, 2, 3, 10, 0, 0, 0, time.FixedZone("Z+2", 2*3600))
		got := toUTC(local)
		want := time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)
		if got.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %v", got.Location())
		}
		if !got.Equal(want) {
			t.Fatalf("want %v, got %v", want, got)
		}
	})
}
