// Package processing implements the Batch Processor: the component
// that drains Heartbeat Bus batches and runs each one through a single
// UnitOfWork cycle (bulk load, state-machine apply, commit, post-commit
// refresh dispatch). The transition logic itself lives in
// statemachine.go; this file is the orchestration around it.
package processing

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitaliisemenov/driftctl/internal/backoff"
	"github.com/vitaliisemenov/driftctl/internal/bus"
	"github.com/vitaliisemenov/driftctl/internal/cache"
	"github.com/vitaliisemenov/driftctl/internal/confighash"
	"github.com/vitaliisemenov/driftctl/internal/domain"
	"github.com/vitaliisemenov/driftctl/internal/metrics"
	"github.com/vitaliisemenov/driftctl/internal/refresh"
	"github.com/vitaliisemenov/driftctl/internal/store"
)

const expectedHashCacheName = "expected-config-hash"

// Config wires a Processor's dependencies.
type Config struct {
	Instances  store.InstanceStore
	Services   store.ServiceRegistry
	DriftLog   store.DriftLog
	Cache      cache.Manager
	ConfigHash *confighash.Client
	Refresh    *refresh.Dispatcher
	Backoff    *backoff.Table
	Metrics    *metrics.ProcessingMetrics
	Logger     *slog.Logger
}

// Processor runs the UnitOfWork cycle described in SPEC_FULL §5.2 over
// each batch handed to it by a bus.ConsumerGroup. It holds no state of
// its own beyond the injected Backoff Table; everything else is
// reloaded fresh from the stores every batch.
type Processor struct {
	instances  store.InstanceStore
	services   store.ServiceRegistry
	driftLog   store.DriftLog
	cacheMgr   cache.Manager
	configHash *confighash.Client
	refresher  *refresh.Dispatcher
	backoff    *backoff.Table
	metrics    *metrics.ProcessingMetrics
	logger     *slog.Logger
}

func NewProcessor(cfg Config) *Processor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultRegistry().Processing()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoff.New()
	}
	return &Processor{
		instances:  cfg.Instances,
		services:   cfg.Services,
		driftLog:   cfg.DriftLog,
		cacheMgr:   cfg.Cache,
		configHash: cfg.ConfigHash,
		refresher:  cfg.Refresh,
		backoff:    cfg.Backoff,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With("component", "processing.processor"),
	}
}

// HandleBatch is the bus.BatchHandler a ConsumerGroup drives. It never
// returns an error for individual bad heartbeats or unresolvable
// services — those are logged, counted, and skipped so one malformed
// payload never stalls the whole batch. It returns an error only when
// the batch-wide instance commit itself fails, since that is the one
// failure the bus's redelivery-on-error contract should act on.
func (p *Processor) HandleBatch(ctx context.Context, batch []bus.Message) error {
	start := time.Now()
	defer func() {
		p.metrics.BatchesTotal.Inc()
		p.metrics.BatchSize.Observe(float64(len(batch)))
		p.metrics.BatchDurationSecs.Observe(time.Since(start).Seconds())
	}()

	payloads := p.decodeBatch(batch)
	if len(payloads) == 0 {
		return nil
	}

	instanceByID := p.loadInstances(ctx, payloads)
	serviceByName := p.loadServices(ctx, payloads)
	expectedByGroup := p.loadExpectedHashes(ctx, payloads)

	now := time.Now().UTC()
	var toUpsert []domain.ServiceInstance
	var events []domain.DriftEvent
	var targets []refreshTarget
	touchedServices := make(map[string]domain.ApplicationService)

	for _, payload := range payloads {
		svc, ok := serviceByName[payload.ServiceName]
		if !ok {
			p.logger.Warn("heartbeat references unresolvable service, skipping",
				"service", payload.ServiceName, "instance_id", payload.InstanceID)
			p.metrics.HeartbeatsTotal.WithLabelValues("error").Inc()
			continue
		}

		inst, existed := instanceByID[payload.InstanceID]
		if !existed {
			inst = domain.ServiceInstance{
				InstanceID: payload.InstanceID,
				ServiceID:  svc.ID,
				TeamID:     svc.OwnerTeamID,
				Status:     domain.StatusUnknown,
				CreatedAt:  now,
			}
		}
		environment := payload.NormalizeEnvironment()
		inst.Host = payload.Host
		inst.Port = payload.Port
		inst.Environment = environment
		inst.Version = payload.Version
		inst.Metadata = payload.Metadata
		inst.LastSeenAt = now
		inst.UpdatedAt = now

		if svc.MergeEnvironment(environment) {
			svc.UpdatedAt = now
			serviceByName[payload.ServiceName] = svc
			touchedServices[svc.DisplayName] = svc
		}

		backoffKey := payload.BackoffKey()
		entry, _ := p.backoff.Get(backoffKey)
		expected := expectedByGroup[expectedHashGroupKey(payload.ServiceName, environment)]

		wasDrifting := inst.HasDrift
		result := ApplyHeartbeat(&inst, payload.ServiceName, payload.ConfigHash, expected, &entry, now)
		if result.ClearBackoff {
			p.backoff.Clear(backoffKey)
		} else {
			p.backoff.Set(backoffKey, entry)
		}

		toUpsert = append(toUpsert, inst)
		instanceByID[payload.InstanceID] = inst

		if result.Event != nil {
			events = append(events, *result.Event)
		}
		switch {
		case !wasDrifting && inst.HasDrift:
			p.metrics.DriftTransitionsTotal.WithLabelValues("into").Inc()
		case wasDrifting && !inst.HasDrift:
			p.metrics.DriftTransitionsTotal.WithLabelValues("out").Inc()
		}
		if result.TriggerRefresh {
			destination := payload.ServiceName + "/" + payload.InstanceID
			p.metrics.RefreshesTriggered.WithLabelValues(destination).Inc()
			targets = append(targets, refreshTarget{
				serviceName: payload.ServiceName,
				instanceID:  payload.InstanceID,
				environment: environment,
			})
		}
		p.metrics.HeartbeatsTotal.WithLabelValues(strings.ToLower(string(inst.Status))).Inc()
	}

	if err := p.commit(ctx, toUpsert, events, touchedServices); err != nil {
		return err
	}

	p.dispatchRefreshes(ctx, targets)
	return nil
}

func (p *Processor) decodeBatch(batch []bus.Message) []domain.HeartbeatPayload {
	payloads := make([]domain.HeartbeatPayload, 0, len(batch))
	for _, msg := range batch {
		var payload domain.HeartbeatPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			p.logger.Error("dropping unparsable heartbeat", "error", err)
			p.metrics.HeartbeatsTotal.WithLabelValues("error").Inc()
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// loadInstances bulk-reads every instance this batch touches. Instance
// IDs absent from the result are new instances the state machine
// builds from scratch.
func (p *Processor) loadInstances(ctx context.Context, payloads []domain.HeartbeatPayload) map[string]domain.ServiceInstance {
	found, err := p.instances.FindByIDs(ctx, uniqueInstanceIDs(payloads))
	out := make(map[string]domain.ServiceInstance, len(found))
	if err != nil {
		p.logger.Error("instance bulk load failed, treating whole batch as new instances", "error", err)
		return out
	}
	for _, inst := range found {
		out[inst.InstanceID] = inst
	}
	return out
}

// loadServices bulk-reads every service this batch references and
// synthesizes + persists an orphan ApplicationService for every name
// the registry has never seen, in the same pass rather than deferred
// to commit (SPEC_FULL §5.2 step 2). A failed orphan save skips that
// service's heartbeats for this batch instead of aborting it.
func (p *Processor) loadServices(ctx context.Context, payloads []domain.HeartbeatPayload) map[string]domain.ApplicationService {
	names := uniqueServiceNames(payloads)
	found, err := p.services.FindByDisplayNames(ctx, names)
	if err != nil {
		p.logger.Error("service registry bulk load failed, treating whole batch as unresolved", "error", err)
		found = map[string]domain.ApplicationService{}
	}

	now := time.Now().UTC()
	for _, name := range names {
		if _, ok := found[name]; ok {
			continue
		}
		orphan := domain.NewOrphan(name, now)
		orphan.ID = uuid.NewString()
		if err := p.services.Save(ctx, orphan); err != nil {
			p.logger.Error("orphan service save failed, skipping its heartbeats this batch",
				"service", name, "error", err)
			continue
		}
		p.metrics.OrphansCreatedTotal.Inc()
		found[name] = orphan
	}
	return found
}

// loadExpectedHashes groups payloads by (serviceName, environment) and
// resolves each group's expected hash through the Cache Tier once,
// rather than once per heartbeat.
func (p *Processor) loadExpectedHashes(ctx context.Context, payloads []domain.HeartbeatPayload) map[string]*string {
	type group struct{ serviceName, environment string }
	groups := make(map[string]group)
	for _, payload := range payloads {
		environment := payload.NormalizeEnvironment()
		groups[expectedHashGroupKey(payload.ServiceName, environment)] = group{payload.ServiceName, environment}
	}

	out := make(map[string]*string, len(groups))
	for key, g := range groups {
		serviceName, environment := g.serviceName, g.environment
		value, err := p.cacheMgr.Get(ctx, expectedHashCacheName, key, func(ctx context.Context) (any, error) {
			return p.configHash.GetExpectedHash(ctx, serviceName, environment)
		})
		if err != nil {
			p.logger.Warn("expected hash lookup failed, treating as unknown",
				"service", serviceName, "environment", environment, "error", err)
			out[key] = nil
			continue
		}
		hash, _ := value.(*string)
		out[key] = hash
	}
	return out
}

// commit persists everything the in-memory pass produced: the
// upserted instance rows, the newly raised DriftEvents, and any
// ApplicationService rows whose environment set grew. Each store call
// is atomic on its own; there is no cross-store transaction spanning
// all three, since the ports expose independent repositories rather
// than a shared unit-of-work handle.
func (p *Processor) commit(ctx context.Context, instances []domain.ServiceInstance, events []domain.DriftEvent, services map[string]domain.ApplicationService) error {
	if len(instances) > 0 {
		inserted, modified, err := p.instances.BulkUpsert(ctx, instances)
		if err != nil {
			p.logger.Error("instance bulk upsert failed", "count", len(instances), "error", err)
			p.metrics.CommitFailuresTotal.Inc()
			return err
		}
		p.logger.Debug("instance batch committed", "inserted", inserted, "modified", modified)
	}

	for _, event := range events {
		if err := p.driftLog.Save(ctx, event); err != nil {
			p.logger.Error("drift event save failed", "instance_id", event.InstanceID, "error", err)
		}
	}

	for name, svc := range services {
		if err := p.services.Save(ctx, svc); err != nil {
			p.logger.Error("service environment merge save failed", "service", name, "error", err)
		}
	}

	return nil
}

type refreshTarget struct {
	serviceName string
	instanceID  string
	environment string
}

// dispatchRefreshes runs after commit, never inside it: a refresh that
// fails to dispatch must not roll back the drift state the Batch
// Processor already persisted. Dispatch outcomes are the Refresh
// Dispatcher's own concern (internal/metrics.RefreshMetrics); this loop
// only logs them.
func (p *Processor) dispatchRefreshes(ctx context.Context, targets []refreshTarget) {
	if p.refresher == nil || p.configHash == nil {
		return
	}
	for _, t := range targets {
		base, err := p.configHash.ResolveBase(ctx, t.serviceName, t.environment)
		if err != nil {
			p.logger.Warn("refresh skipped, no resolvable config source",
				"service", t.serviceName, "instance_id", t.instanceID, "error", err)
			continue
		}

		destination := t.serviceName + "/" + t.instanceID
		if err := p.refresher.TriggerRefresh(ctx, base, destination); err != nil {
			p.logger.Warn("refresh dispatch failed", "destination", destination, "error", err)
			continue
		}
	}
}

func expectedHashGroupKey(serviceName, environment string) string {
	return serviceName + ":" + environment
}

func uniqueInstanceIDs(payloads []domain.HeartbeatPayload) []string {
	seen := make(map[string]bool, len(payloads))
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if !seen[p.InstanceID] {
			seen[p.InstanceID] = true
			out = append(out, p.InstanceID)
		}
	}
	return out
}

func uniqueServiceNames(payloads []domain.HeartbeatPayload) []string {
	seen := make(map[string]bool, len(payloads))
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if !seen[p.ServiceName] {
			seen[p.ServiceName] = true
			out = append(out, p.ServiceName)
		}
	}
	return out
}
