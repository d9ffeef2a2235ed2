// Package domain holds the core value types of the drift control plane:
// the inbound heartbeat, the registry records it mutates, and the
// append-only drift log it produces. Nothing in this package performs
// I/O; persistence and transport live in internal/store and internal/bus.
package domain

import "time"

// HeartbeatPayload is the immutable message an instance sends on every
// heartbeat tick. It is the wire shape carried by the Heartbeat Bus and
// validated by the Ingestion Gateway before it ever reaches a worker.
type HeartbeatPayload struct {
	InstanceID  string            `json:"instanceId" validate:"required"`
	ServiceName string            `json:"serviceName" validate:"required"`
	Environment string            `json:"environment"`
	Host        string            `json:"host"`
	Port        int               `json:"port"`
	Version     string            `json:"version"`
	ConfigHash  *string           `json:"configHash,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	SentAt      time.Time         `json:"sentAt"`
}

// NormalizeEnvironment returns the payload's environment, defaulting to
// "default" when the sender omitted it.
func (p HeartbeatPayload) NormalizeEnvironment() string {
	if p.Environment == "" {
		return "default"
	}
	return p.Environment
}

// PartitionKey returns the key the Ingestion Gateway partitions the bus
// topic on. Keying by service name gives total per-service ordering
// downstream.
func (p HeartbeatPayload) PartitionKey() string {
	return p.ServiceName
}

// BackoffKey identifies this heartbeat's entry in the process-local
// Backoff Table.
func (p HeartbeatPayload) BackoffKey() string {
	return p.ServiceName + ":" + p.InstanceID
}
