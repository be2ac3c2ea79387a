package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
)

func record(sensor int) models.TelemetryRecord {
	return models.TelemetryRecord{
		SensorIndex: sensor,
		Moisture:    420,
		Temperature: 23.5,
		Humidity:    58,
		Light:       600,
		TimestampMs: 1000,
	}
}

func TestPublisher_PublishNeverBlocksAndCountsDrops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 2
	p := NewPublisher(cfg, logger.Get(logger.ErrorLevel))

	// Nothing drains the queue, so only BufferSize records fit.
	if !p.Publish(record(0)) || !p.Publish(record(1)) {
		t.Fatalf("first two records must be accepted")
	}
	if p.Publish(record(2)) {
		t.Fatalf("third record must be dropped with a full buffer")
	}
	if p.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", p.Dropped())
	}
}

func TestPublisher_RunPostsToGateway(t *testing.T) {
	var mu sync.Mutex
	var got []models.TelemetryRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		var rec models.TelemetryRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		got = append(got, rec)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.GatewayURL = srv.URL
	cfg.MinInterval = time.Millisecond // no pacing in tests
	p := NewPublisher(cfg, logger.Get(logger.ErrorLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	if !p.Publish(record(3)) {
		t.Fatalf("publish rejected with empty buffer")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Sent() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p.Sent() != 1 {
		t.Fatalf("record never reached the gateway")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].SensorIndex != 3 {
		t.Fatalf("unexpected gateway payload: %+v", got)
	}
}

func TestPublisher_GatewayErrorCountsAsDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.GatewayURL = srv.URL
	cfg.MinInterval = time.Millisecond
	p := NewPublisher(cfg, logger.Get(logger.ErrorLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(record(0))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Dropped() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p.Dropped() != 1 {
		t.Fatalf("failed upload must count as a drop, dropped=%d sent=%d", p.Dropped(), p.Sent())
	}
	if p.Sent() != 0 {
		t.Fatalf("nothing should count as sent, got %d", p.Sent())
	}
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	p := NewPublisher(DefaultConfig(), logger.Get(logger.ErrorLevel))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after context cancellation")
	}
}
