package domain

import "time"

// DriftSeverity classifies how urgently a DriftEvent should be acted on.
type DriftSeverity string

const (
	SeverityLow      DriftSeverity = "LOW"
	SeverityMedium   DriftSeverity = "MEDIUM"
	SeverityHigh     DriftSeverity = "HIGH"
	SeverityCritical DriftSeverity = "CRITICAL"
)

// DriftEventStatus is the lifecycle of a DriftEvent once raised.
type DriftEventStatus string

const (
	DriftDetected DriftEventStatus = "DETECTED"
	DriftResolved DriftEventStatus = "RESOLVED"
	DriftAcked    DriftEventStatus = "ACK"
)

// DriftEvent is an append-only record of one transition into DRIFT. The
// state machine emits at most one per ¬hasDrift→hasDrift transition,
// never one per drifting heartbeat.
type DriftEvent struct {
	ID           string
	ServiceName  string
	InstanceID   string
	ServiceID    string
	TeamID       string
	Environment  string
	ExpectedHash string
	AppliedHash  string
	Severity     DriftSeverity
	Status       DriftEventStatus
	DetectedAt   time.Time
	DetectedBy   string
	Notes        string
}

// DedupKey returns the logical dedup key DriftLog.Save enforces
// uniqueness on, making redelivery of the same batch idempotent.
func (e DriftEvent) DedupKey() (instanceID, expectedHash, appliedHash string, detectedAt time.Time) {
	return e.InstanceID, e.ExpectedHash, e.AppliedHash, e.DetectedAt
}

// NewDriftEvent builds a DriftEvent for a fresh drift transition
// detected by the Batch Processor.
func NewDriftEvent(serviceName, instanceID, serviceID, teamID, environment, expectedHash, appliedHash string, now time.Time) DriftEvent {
	return DriftEvent{
		ServiceName:  serviceName,
		InstanceID:   instanceID,
		ServiceID:    serviceID,
		TeamID:       teamID,
		Environment:  environment,
		ExpectedHash: expectedHash,
		AppliedHash:  appliedHash,
		Severity:     SeverityMedium,
		Status:       DriftDetected,
		DetectedAt:   now,
		DetectedBy:   "heartbeat-batch",
	}
}
