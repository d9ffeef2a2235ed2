// Package health implements the health-check aggregator: the endpoint
// operators and orchestrators poll to decide whether this instance of
// driftctl is safe to route traffic to. It fans out one check per
// dependency in parallel, bounded by a per-check timeout, the way the
// teacher's dashboard health handler checks database/Redis/LLM/
// publishing concurrently and aggregates the worst status.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vitaliisemenov/driftctl/internal/metrics"
)

// Status is a component or aggregate health verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) gaugeValue() float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 0.5
	default:
		return 0
	}
}

// ComponentHealth is one checker's verdict.
type ComponentHealth struct {
	Status    Status `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Report is the aggregator's full verdict across every registered
// checker.
type Report struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// Checker verifies one dependency is reachable. Critical checkers
// failing degrade the aggregate status to unhealthy; non-critical
// ones only degrade it to degraded.
type Checker interface {
	Name() string
	Critical() bool
	Check(ctx context.Context) error
}

// Aggregator runs a fixed set of Checkers concurrently and combines
// their verdicts into a single Report.
type Aggregator struct {
	checkers []Checker
	timeout  time.Duration
	metrics  *metrics.HealthMetrics
	logger   *slog.Logger
}

// Config wires an Aggregator's dependencies.
type Config struct {
	Checkers []Checker
	// Timeout bounds each individual checker; the slowest dependency
	// never blocks the others. Default 5s.
	Timeout time.Duration
	Metrics *metrics.HealthMetrics
	Logger  *slog.Logger
}

func NewAggregator(cfg Config) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultRegistry().Health()
	}
	return &Aggregator{
		checkers: cfg.Checkers,
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "health.aggregator"),
	}
}

type checkResult struct {
	name   string
	health ComponentHealth
	critical bool
}

// Check runs every registered Checker concurrently, each bounded by
// the aggregator's timeout, and returns the combined Report.
func (a *Aggregator) Check(ctx context.Context) Report {
	results := make(chan checkResult, len(a.checkers))
	var wg sync.WaitGroup

	for _, c := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			results <- a.runOne(ctx, c)
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	report := Report{Timestamp: time.Now().UTC(), Components: make(map[string]ComponentHealth, len(a.checkers))}
	hasUnhealthy := false
	hasDegraded := false

	for r := range results {
		report.Components[r.name] = r.health
		a.metrics.ComponentStatus.WithLabelValues(r.name).Set(r.health.Status.gaugeValue())
		switch r.health.Status {
		case StatusUnhealthy:
			if r.critical {
				hasUnhealthy = true
			} else {
				hasDegraded = true
			}
		case StatusDegraded:
			hasDegraded = true
		}
	}

	switch {
	case hasUnhealthy:
		report.Status = StatusUnhealthy
	case hasDegraded:
		report.Status = StatusDegraded
	default:
		report.Status = StatusHealthy
	}
	a.metrics.OverallStatus.Set(report.Status.gaugeValue())

	return report
}

func (a *Aggregator) runOne(ctx context.Context, c Checker) checkResult {
	checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	latency := time.Since(start)

	a.metrics.CheckDuration.WithLabelValues(c.Name()).Observe(latency.Seconds())

	health := ComponentHealth{Status: StatusHealthy, LatencyMS: latency.Milliseconds()}
	if err != nil {
		health.Status = StatusUnhealthy
		health.Error = err.Error()
		a.logger.Warn("component health check failed",
			"component", c.Name(), "critical", c.Critical(), "error", err)
	}
	a.metrics.ChecksTotal.WithLabelValues(c.Name(), string(health.Status)).Inc()

	return checkResult{name: c.Name(), health: health, critical: c.Critical()}
}
