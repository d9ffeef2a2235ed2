// Package confighash implements the Config Hash Client: the component
// that tells the Batch Processor what a service's configuration is
// expected to look like, so its hash can be compared against the
// hash reported on a heartbeat.
package confighash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vitaliisemenov/driftctl/internal/metrics"
	"github.com/vitaliisemenov/driftctl/internal/resilience"
)

// ClientConfig wires the Config Hash Client's discovery and fallback
// behavior. Whitelist names the services checked against a real config
// source; everything else uses MockStrategy.
type ClientConfig struct {
	Whitelist    map[string]bool
	MockStrategy MockStrategy
	Discovery    ServiceDiscovery
	Namespace    string
	DirectURLs   map[string]string // environment -> base URL, used when discovery fails or is nil
	HTTPClient   *http.Client
	Chain        *resilience.Chain
	Metrics      *metrics.ConfigHashMetrics
}

// Client is the Config Hash Client. It resolves the expected
// configuration hash for a service/environment pair through mock
// strategies or a live HTTP fetch against the discovered config
// source, guarded by the standard resilience chain (retry, breaker,
// bulkhead, timeout) composed in internal/resilience/chain.go.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	mu            sync.Mutex
	lastKnownGood map[string][]byte // "service:env" -> last canonical JSON fetched
}

// NewClient builds a Client. cfg.Chain must not be nil in production;
// tests may pass a Chain built with empty ChainConfig for pass-through
// behavior.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if cfg.Chain == nil {
		cfg.Chain = resilience.NewChain("confighash", resilience.ChainConfig{})
	}
	return &Client{
		cfg:           cfg,
		logger:        logger.With("component", "confighash.client"),
		lastKnownGood: make(map[string][]byte),
	}
}

// Ping verifies the underlying discovery mechanism is reachable, when
// one is configured. A client running entirely on mock strategies and
// direct URLs has nothing live to check, so it reports healthy.
func (c *Client) Ping(ctx context.Context) error {
	pinger, ok := c.cfg.Discovery.(Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}

// GetExpectedHash returns the expected configuration hash for
// serviceName in environment, or nil if none could be determined.
func (c *Client) GetExpectedHash(ctx context.Context, serviceName, environment string) (*string, error) {
	if !c.cfg.Whitelist[serviceName] {
		if c.cfg.MockStrategy == nil {
			c.observeRequest("miss")
			return nil, nil
		}
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.MockModeTotal.WithLabelValues(mockStrategyName(c.cfg.MockStrategy)).Inc()
		}
		c.observeRequest("hit")
		return c.cfg.MockStrategy.Hash(serviceName, environment), nil
	}

	canonical, err := resilience.Execute(ctx, c.cfg.Chain, func(ctx context.Context) ([]byte, error) {
		return c.fetchCanonical(ctx, serviceName, environment)
	})
	if err != nil {
		c.logger.Warn("config hash fetch exhausted resilience chain, falling back to last known good",
			"service", serviceName, "environment", environment, "error", err)
		c.observeRequest("error")
		return c.fallbackHash(serviceName, environment)
	}

	c.storeLastKnownGood(serviceName, environment, canonical)

	sum, err := HashCanonical(canonical)
	if err != nil {
		return nil, err
	}
	c.observeRequest("hit")
	return &sum, nil
}

func (c *Client) observeRequest(outcome string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func mockStrategyName(s MockStrategy) string {
	name := fmt.Sprintf("%T", s)
	return strings.TrimPrefix(name, "confighash.")
}

func (c *Client) fetchCanonical(ctx context.Context, serviceName, environment string) ([]byte, error) {
	base, err := c.resolveBase(ctx, serviceName, environment)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s", base, serviceName, environment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("confighash: config source returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return Canonicalize(body)
}

// ResolveBase exposes the same discovery → direct-URL resolution
// GetExpectedHash uses internally, so the Refresh Dispatcher can target
// the same config source instance without duplicating the lookup.
func (c *Client) ResolveBase(ctx context.Context, serviceName, environment string) (string, error) {
	return c.resolveBase(ctx, serviceName, environment)
}

func (c *Client) resolveBase(ctx context.Context, serviceName, environment string) (string, error) {
	if c.cfg.Discovery != nil {
		if addr, err := c.cfg.Discovery.ResolveEndpoint(ctx, c.cfg.Namespace, serviceName); err == nil {
			return "http://" + addr, nil
		} else {
			if c.cfg.Metrics != nil {
				c.cfg.Metrics.DiscoveryErrorsTotal.Inc()
			}
			c.logger.Debug("discovery failed, falling back to direct URL", "service", serviceName, "error", err)
		}
	}

	if base, ok := c.cfg.DirectURLs[environment]; ok {
		return base, nil
	}

	return "", fmt.Errorf("confighash: no config source reachable for %s/%s", serviceName, environment)
}

func (c *Client) storeLastKnownGood(serviceName, environment string, canonical []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKnownGood[lastKnownGoodKey(serviceName, environment)] = canonical
}

func (c *Client) fallbackHash(serviceName, environment string) (*string, error) {
	c.mu.Lock()
	canonical, ok := c.lastKnownGood[lastKnownGoodKey(serviceName, environment)]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.FallbackServedTotal.WithLabelValues(serviceName).Inc()
	}
	sum, err := HashCanonical(canonical)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func lastKnownGoodKey(serviceName, environment string) string {
	return serviceName + ":" + environment
}
