// Package refresh implements the Refresh Dispatcher: the component
// that asks a service to reload its configuration after the Batch
// Processor observes new drift, or persistent drift that reaches its
// backoff threshold.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitaliisemenov/driftctl/internal/domain"
	"github.com/vitaliisemenov/driftctl/internal/metrics"
)

// Dispatcher triggers a Spring Cloud Bus style refresh against a
// config source. destination is advisory: the upstream
// /actuator/busrefresh contract broadcasts to every subscriber
// regardless of what is passed, so it is logged as a label rather than
// encoded on the wire.
type Dispatcher struct {
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.RefreshMetrics
}

// NewDispatcher builds a Dispatcher. m may be nil to disable
// instrumentation.
func NewDispatcher(client *http.Client, m *metrics.RefreshMetrics, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, metrics: m, logger: logger.With("component", "refresh.dispatcher")}
}

// TriggerRefresh POSTs to {base}/actuator/busrefresh. Any failure is
// translated to domain.ErrExternalUnavailable so callers can treat it
// uniformly with other downstream outages; the caller decides whether
// to retry or simply log and continue.
func (d *Dispatcher) TriggerRefresh(ctx context.Context, base, destination string) error {
	url := base + "/actuator/busrefresh"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("%w: building refresh request: %v", domain.ErrExternalUnavailable, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("refresh dispatch failed", "destination", destination, "url", url, "error", err)
		d.observeError()
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Error("refresh dispatch rejected", "destination", destination, "status", resp.StatusCode)
		d.observeError()
		return fmt.Errorf("%w: status %d", domain.ErrExternalUnavailable, resp.StatusCode)
	}

	if d.metrics != nil {
		d.metrics.TriggeredTotal.WithLabelValues(destination).Inc()
	}
	d.logger.Info("refresh dispatched", "destination", destination)
	return nil
}

func (d *Dispatcher) observeError() {
	if d.metrics != nil {
		d.metrics.ErrorsTotal.Inc()
	}
}
