package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ProbeResult is the outcome of the latest aggregator check.
type ProbeResult struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

type ProberConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Prober checks the aggregator on a fixed interval. A failed check is
// recorded and never retried within the same cycle.
type Prober struct {
	target   healthChecker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}

	mu   sync.RWMutex
	last *ProbeResult
}

func NewProber(target healthChecker, cfg ProberConfig, logger *slog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		target:   target,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (p *Prober) Start(ctx context.Context) {
	p.logger.Info("aggregator prober started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		p.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("aggregator prober stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()
}

func (p *Prober) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

func (p *Prober) RunOnce(ctx context.Context) ProbeResult {
	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.target.HealthCheck(requestCtx)
	cancel()

	result := ProbeResult{Healthy: err == nil, CheckedAt: p.now().UTC()}
	if err != nil {
		result.Error = err.Error()
	}

	p.mu.Lock()
	previous := p.last
	p.last = &result
	p.mu.Unlock()

	switch {
	case err != nil && (previous == nil || previous.Healthy):
		p.logger.Warn("aggregator unhealthy", "error", err)
	case err == nil && previous != nil && !previous.Healthy:
		p.logger.Info("aggregator recovered")
	}
	return result
}

// Last returns the most recent result, or false before the first check.
func (p *Prober) Last() (ProbeResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return ProbeResult{}, false
	}
	return *p.last, true
}
