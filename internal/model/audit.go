package model

import (
	"time"

	"github.com/google/uuid"
)

type AuditKind string

const (
	AuditKindIssued    AuditKind = "issued"
	AuditKindScanned   AuditKind = "scanned"
	AuditKindCancelled AuditKind = "cancelled"
	AuditKindExpired   AuditKind = "expired"
)

// TicketAuditEvent is an append-only record of something that happened to a ticket.
type TicketAuditEvent struct {
	ID         int               `json:"id" db:"id"`
	RequestID  string            `json:"request_id" db:"request_id"`
	TicketID   uuid.UUID         `json:"ticket_id" db:"ticket_id"`
	Kind       AuditKind         `json:"kind" db:"kind"`
	Outcome    ValidationOutcome `json:"outcome,omitempty" db:"outcome"`
	GateID     string            `json:"gate_id,omitempty" db:"gate_id"`
	ActorID    int               `json:"actor_id,omitempty" db:"actor_id"`
	OccurredAt time.Time         `json:"occurred_at" db:"occurred_at"`
}
