package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
)

func TestIrrigationService_EmergencyStop_LogsCommand(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	h := newLiveHandle(t, at)
	frepo := &fakeEventRepo{}
	srepo := &monitoringStateRepoStub{}

	svc := NewIrrigationService(h, srepo, frepo)
	if err := svc.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}

	if len(frepo.appended) != 1 {
		t.Fatalf("expected 1 event, got %d", len(frepo.appended))
	}
	ev := frepo.appended[0]
	if ev.Type != models.EventEmergencyStop {
		t.Fatalf("event type: want %s, got %s", models.EventEmergencyStop, ev.Type)
	}
	if ev.EventID == "" {
		t.Fatalf("event must carry a generated id")
	}
	if !ev.OccurredAt.Equal(at) {
		t.Fatalf("OccurredAt: want %v, got %v", at, ev.OccurredAt)
	}
}

func TestIrrigationService_Resume_PersistsAndLogs(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	h := newLiveHandle(t, at)
	frepo := &fakeEventRepo{}
	srepo := &monitoringStateRepoStub{}

	svc := NewIrrigationService(h, srepo, frepo)
	if err := svc.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if len(srepo.savedCalls) != 1 {
		t.Fatalf("expected 1 state save, got %d", len(srepo.savedCalls))
	}
	if srepo.savedCalls[0].Failsafe.Active {
		t.Fatalf("saved state must not be in safe mode after resume")
	}
	if len(frepo.appended) != 1 || frepo.appended[0].Type != models.EventResume {
		t.Fatalf("expected one RESUME event, got %+v", frepo.appended)
	}
}

func TestIrrigationService_Reset_SaveErrorPropagates(t *testing.T) {
	t.Parallel()

	h := newLiveHandle(t, time.Now())
	frepo := &fakeEventRepo{}
	srepo := &monitoringStateRepoStub{saveErr: errors.New("db down")}

	svc := NewIrrigationService(h, srepo, frepo)
	if err := svc.Reset(context.Background()); err == nil {
		t.Fatalf("expected save error to propagate")
	}
	if len(frepo.appended) != 0 {
		t.Fatalf("no event should be logged when persistence fails")
	}
}

func TestIrrigationService_SubmitAdvisory_Validation(t *testing.T) {
	t.Parallel()

	h := newLiveHandle(t, time.Now())
	svc := NewIrrigationService(h, &monitoringStateRepoStub{}, &fakeEventRepo{})

	tooLong := models.Advisory{Forecast: make([]float64, maxForecastHours+1)}
	if err := svc.SubmitAdvisory(context.Background(), tooLong); !errors.Is(err, errAdvisoryTooLarge) {
		t.Fatalf("expected errAdvisoryTooLarge, got %v", err)
	}

	badConf := models.Advisory{AnomalyConfidence: 1.5}
	if err := svc.SubmitAdvisory(context.Background(), badConf); !errors.Is(err, errAdvisoryConfidence) {
		t.Fatalf("expected errAdvisoryConfidence, got %v", err)
	}
}

func TestIrrigationService_SubmitAdvisory_StampsReceiveTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	h := newLiveHandle(t, at)
	frepo := &fakeEventRepo{}
	svc := NewIrrigationService(h, &monitoringStateRepoStub{}, frepo)

	a := models.Advisory{Forecast: []float64{0.2, 0.3}, AnomalyConfidence: 0.8}
	if err := svc.SubmitAdvisory(context.Background(), a); err != nil {
		t.Fatalf("SubmitAdvisory: %v", err)
	}

	var stored *models.Advisory
	h.with(func(c *engine.Controller) { stored = c.Advisory() })
	if stored == nil {
		t.Fatalf("advisory was not stored on the controller")
	}
	if stored.ReceivedAtMs != at.UnixMilli() {
		t.Fatalf("ReceivedAtMs: want %d, got %d", at.UnixMilli(), stored.ReceivedAtMs)
	}

	if len(frepo.appended) != 1 || frepo.appended[0].Type != models.EventAdvisory {
		t.Fatalf("expected one ADVISORY event, got %+v", frepo.appended)
	}
}
