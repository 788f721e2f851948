package model

import "time"

// Presence WebSocket message types.
const (
	PresenceMessageActivity     = "activity"
	PresenceMessageHeartbeat    = "heartbeat"
	PresenceMessageAck          = "ack"
	PresenceMessageStatusChange = "status_change"
)

// Presence WebSocket close codes.
const (
	CloseMissingApplierID = 4001
	CloseSuperseded       = 4002
)

// PresenceInbound is a client → server presence message.
type PresenceInbound struct {
	Type string `json:"type"`
}

// PresenceAck acknowledges an activity or heartbeat message.
type PresenceAck struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusChange is broadcast to every open presence socket on any applier transition.
type StatusChange struct {
	Type      string        `json:"type"`
	ApplierID string        `json:"applierId"`
	Status    ApplierStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// PresenceEventKind distinguishes events exchanged between server instances.
type PresenceEventKind string

const (
	PresenceEventStatusChange PresenceEventKind = "status_change"
	PresenceEventSupersede    PresenceEventKind = "supersede"
)

// PresenceEvent is published on the presence fan-out so every instance can deliver
// status changes to its own sockets and drop connections superseded elsewhere.
type PresenceEvent struct {
	Kind         PresenceEventKind `json:"kind"`
	InstanceID   string            `json:"instance_id"`
	ApplierID    string            `json:"applier_id"`
	ConnectionID string            `json:"connection_id,omitempty"`
	Change       *StatusChange     `json:"change,omitempty"`
}

// PresenceConnectionInfo is a read-only snapshot of a locally registered connection.
type PresenceConnectionInfo struct {
	ConnectionID   string    `json:"connection_id"`
	ApplierID      string    `json:"applier_id"`
	ConnectedAt    time.Time `json:"connected_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
