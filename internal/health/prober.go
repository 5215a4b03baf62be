// Package health tracks whether the hospital API is reachable.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hackgods/ward-dashboard/internal/metrics"
)

// Health is a point-in-time connectivity snapshot.
type Health struct {
	IsConnected  bool      `json:"isConnected"`
	ResponseTime int64     `json:"responseTime"` // milliseconds
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
}

// Pinger is the one call the prober needs from the transport.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober pings the backend and remembers the latest result.
type Prober struct {
	pinger  Pinger
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	last   Health
	probed bool
}

// NewProber creates a prober whose manual probes are limited to manualRate per second.
// A non-positive rate disables the limit.
func NewProber(pinger Pinger, manualRate float64, logger *zap.Logger) *Prober {
	limit := rate.Inf
	if manualRate > 0 {
		limit = rate.Limit(manualRate)
	}
	return &Prober{
		pinger:  pinger,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		now:     time.Now,
	}
}

// Probe pings the backend. It never fails: any error becomes a disconnected snapshot.
func (p *Prober) Probe(ctx context.Context) Health {
	start := p.now()
	err := p.pinger.Ping(ctx)
	elapsed := p.now().Sub(start)

	h := Health{
		IsConnected:  err == nil,
		ResponseTime: elapsed.Milliseconds(),
		CheckedAt:    start,
	}
	if err != nil {
		h.Error = err.Error()
	}

	p.mu.Lock()
	changed := p.probed && p.last.IsConnected != h.IsConnected
	p.last = h
	p.probed = true
	p.mu.Unlock()

	metrics.RecordProbe(h.IsConnected, elapsed)

	if changed {
		if h.IsConnected {
			p.logger.Info("hospital API reachable again", zap.Int64("response_ms", h.ResponseTime))
		} else {
			p.logger.Warn("hospital API unreachable", zap.String("error", h.Error))
		}
	}

	return h
}

// TestConnection is the manual "test connection" action. When called faster
// than the configured rate it returns the last snapshot without a network call.
func (p *Prober) TestConnection(ctx context.Context) Health {
	if !p.limiter.Allow() {
		if h, ok := p.Last(); ok {
			return h
		}
	}
	return p.Probe(ctx)
}

// Last returns the most recent snapshot and whether any probe has run yet.
func (p *Prober) Last() (Health, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.probed
}

// Disconnected reports whether the last probe failed. Before the first probe
// the backend is assumed reachable.
func (p *Prober) Disconnected() bool {
	h, ok := p.Last()
	return ok && !h.IsConnected
}

// Run probes once immediately and then on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context, interval time.Duration) {
	p.probeOnce(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("health prober stopped")
			return
		case <-ticker.C:
			p.probeOnce(ctx, interval)
		}
	}
}

func (p *Prober) probeOnce(ctx context.Context, interval time.Duration) {
	probeCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	h := p.Probe(probeCtx)
	p.logger.Debug("health probe",
		zap.Bool("connected", h.IsConnected),
		zap.Int64("response_ms", h.ResponseTime),
	)
}
