// Package store defines the abstract persistence ports the Batch
// Processor depends on, keeping it free of any specific database
// driver. internal/store/postgres provides the production backend;
// internal/store/memory provides fakes for unit tests.
package store

import (
	"context"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// InstanceStore owns ServiceInstance rows.
type InstanceStore interface {
	// FindByIDs bulk-reads every known instance among instanceIDs in one
	// round trip; IDs with no existing row are simply absent from the
	// result (never an error) since that's the Batch Processor's signal
	// for "new instance".
	FindByIDs(ctx context.Context, instanceIDs []string) ([]domain.ServiceInstance, error)

	// BulkUpsert idempotently writes every instance in the batch,
	// inserting new rows and updating existing ones, reporting how many
	// of each it did. The Postgres implementation runs one statement per
	// instance inside a single transaction.
	BulkUpsert(ctx context.Context, instances []domain.ServiceInstance) (inserted, modified int, err error)
}

// ServiceRegistry owns ApplicationService rows, keyed by DisplayName.
type ServiceRegistry interface {
	// FindByDisplayNames bulk-reads every known service among
	// displayNames in one round trip, keyed by DisplayName. Names with
	// no existing row are simply absent from the result.
	FindByDisplayNames(ctx context.Context, displayNames []string) (map[string]domain.ApplicationService, error)

	// Save idempotently inserts or updates a service, per SPEC_FULL §9.2's
	// orphan-creation semantics: a concurrent first-heartbeat race from
	// two instances of the same unseen service must not create two
	// orphan rows.
	Save(ctx context.Context, service domain.ApplicationService) error
}

// DriftLog is the append-only store of DriftEvents.
type DriftLog interface {
	// Save idempotently appends event, returning without error (and
	// without creating a duplicate row) if event.DedupKey() was already
	// recorded. The Postgres implementation also increments the
	// DriftEventCount of the event's owning ServiceInstance row, with a
	// second statement that runs only when a new event row was inserted;
	// the in-memory fake does not touch instance rows.
	Save(ctx context.Context, event domain.DriftEvent) error

	// CountForInstance returns how many DriftEvents have been recorded
	// for instanceID. Not part of the Batch Processor's hot path — a
	// convenience for dashboards/tests that don't want to trust the
	// denormalized DriftEventCount counter.
	CountForInstance(ctx context.Context, instanceID string) (int64, error)
}
