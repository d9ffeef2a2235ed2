package migrations

import (
	"fmt"
	"time"
)

// MigrationError wraps a goose operation failure with the version and
// operation it occurred during, for structured logging upstream.
type MigrationError struct {
	Operation string
	Version   int64
	Cause     error
	Timestamp time.Time
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s failed at version %d: %v", e.Operation, e.Version, e.Cause)
}

func (e *MigrationError) Unwrap() error {
	return e.Cause
}

func wrapError(operation string, version int64, cause error) error {
	if cause == nil {
		return nil
	}
	return &MigrationError{Operation: operation, Version: version, Cause: cause, Timestamp: time.Now()}
}
