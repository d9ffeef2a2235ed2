package health

import (
	"context"
	"fmt"

	"github.com/vitaliisemenov/driftctl/internal/bus"
	"github.com/vitaliisemenov/driftctl/internal/cache"
	"github.com/vitaliisemenov/driftctl/internal/confighash"
	"github.com/vitaliisemenov/driftctl/internal/database/postgres"
)

// DatabaseChecker wraps the Postgres connection pool's own health
// checker. It is critical: with no database, neither ingestion nor
// processing can persist anything.
type DatabaseChecker struct {
	checker postgres.HealthChecker
}

func NewDatabaseChecker(checker postgres.HealthChecker) *DatabaseChecker {
	return &DatabaseChecker{checker: checker}
}

func (c *DatabaseChecker) Name() string     { return "database" }
func (c *DatabaseChecker) Critical() bool   { return true }
func (c *DatabaseChecker) Check(ctx context.Context) error {
	return c.checker.CheckHealth(ctx)
}

const healthCacheName = "__health__"

// CacheChecker exercises the Cache Tier with a Put/Get roundtrip.
// Non-critical: the Cache Tier's own breaker already falls back to
// the local in-process tier, so a distributed-backend outage
// degrades performance, not correctness.
type CacheChecker struct {
	mgr cache.Manager
}

func NewCacheChecker(mgr cache.Manager) *CacheChecker {
	return &CacheChecker{mgr: mgr}
}

func (c *CacheChecker) Name() string   { return "cache" }
func (c *CacheChecker) Critical() bool { return false }

func (c *CacheChecker) Check(ctx context.Context) error {
	const key = "ping"
	if err := c.mgr.Put(ctx, healthCacheName, key, "pong"); err != nil {
		return fmt.Errorf("cache put failed: %w", err)
	}
	// The loader runs on a cache miss (e.g. NoopProvider, or a cold
	// distributed tier) so this still succeeds without a real cache
	// behind it; it only fails if Put/Get themselves error, since
	// the Cache Tier already degrades silently to a lower tier rather
	// than surface its own breaker state here.
	value, err := c.mgr.Get(ctx, healthCacheName, key, func(context.Context) (any, error) {
		return "pong", nil
	})
	if err != nil {
		return fmt.Errorf("cache get failed: %w", err)
	}
	if value != "pong" {
		return fmt.Errorf("cache roundtrip returned unexpected value %v", value)
	}
	return nil
}

// BusChecker verifies the Heartbeat Bus is reachable. Critical: a
// down bus means the Ingestion Gateway can no longer decouple from
// the Batch Processor's pace, so heartbeats would be rejected at the
// edge.
type BusChecker struct {
	pinger bus.Pinger
}

func NewBusChecker(pinger bus.Pinger) *BusChecker {
	return &BusChecker{pinger: pinger}
}

func (c *BusChecker) Name() string   { return "bus" }
func (c *BusChecker) Critical() bool { return true }

func (c *BusChecker) Check(ctx context.Context) error {
	return c.pinger.Ping(ctx)
}

// ConfigHashChecker verifies the Config Hash Client's discovery
// mechanism is reachable. Non-critical: the client already falls
// back to its last-known-good hash per service/environment when a
// live fetch fails, per SPEC_FULL's degraded-mode requirement.
type ConfigHashChecker struct {
	client *confighash.Client
}

func NewConfigHashChecker(client *confighash.Client) *ConfigHashChecker {
	return &ConfigHashChecker{client: client}
}

func (c *ConfigHashChecker) Name() string   { return "confighash" }
func (c *ConfigHashChecker) Critical() bool { return false }

func (c *ConfigHashChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx)
}
