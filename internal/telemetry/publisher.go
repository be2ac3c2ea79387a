package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/models"
)

// Config tunes the gateway uplink.
type Config struct {
	GatewayURL  string        // empty disables the HTTP sender; records are still buffered and counted
	MinInterval time.Duration // floor between two uploads
	BufferSize  int           // queued records before drops start
	HTTPTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval: 5 * time.Second,
		BufferSize:  64,
		HTTPTimeout: 3 * time.Second,
	}
}

// Publisher is the best-effort telemetry uplink. Publish never blocks the
// caller: when the buffer is full the record is dropped and counted. The
// background sender paces uploads with a rate limiter so a burst of ticks
// cannot flood the gateway.
type Publisher struct {
	cfg     Config
	queue   chan models.TelemetryRecord
	limiter *rate.Limiter
	client  *http.Client
	log     *logger.Logger

	dropped atomic.Uint64
	sent    atomic.Uint64
}

func NewPublisher(cfg Config, log *logger.Logger) *Publisher {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 5 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	return &Publisher{
		cfg:     cfg,
		queue:   make(chan models.TelemetryRecord, cfg.BufferSize),
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

// Publish queues one record. Returns false when the buffer was full and the
// record was discarded.
func (p *Publisher) Publish(rec models.TelemetryRecord) bool {
	select {
	case p.queue <- rec:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped reports how many records were discarded since start.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Sent reports how many records reached the gateway.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Run drains the queue until ctx is canceled. Upload failures are logged
// and the record is discarded; telemetry never retries, the next tick
// brings fresher data anyway.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-p.queue:
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			if err := p.send(ctx, rec); err != nil {
				p.dropped.Add(1)
				p.log.Warnw("telemetry upload failed", "sensor", rec.SensorIndex, "error", err)
				continue
			}
			p.sent.Add(1)
		}
	}
}

func (p *Publisher) send(ctx context.Context, rec models.TelemetryRecord) error {
	if p.cfg.GatewayURL == "" {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return nil
}
