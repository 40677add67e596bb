package model

import (
	"time"

	"github.com/google/uuid"
)

// ValidationOutcome is the typed result of a gate scan. Only Accepted admits.
type ValidationOutcome string

const (
	OutcomeAccepted    ValidationOutcome = "accepted"
	OutcomeAlreadyUsed ValidationOutcome = "already_used"
	OutcomeExpired     ValidationOutcome = "expired"
	OutcomeCancelled   ValidationOutcome = "cancelled"
	OutcomeNotFound    ValidationOutcome = "not_found"
	OutcomeNotYetOpen  ValidationOutcome = "not_yet_open"
	OutcomeWrongEvent  ValidationOutcome = "wrong_event"
)

func (o ValidationOutcome) Admits() bool {
	return o == OutcomeAccepted
}

// ValidateRequest is one scan submitted by a gate. EventID is optional and binds the gate to one event.
// ScanID is chosen once per physical scan and repeated on every retry of it.
type ValidateRequest struct {
	TicketID uuid.UUID
	ScanTime time.Time
	GateID   string
	EventID  *uuid.UUID
	ScanID   uuid.UUID
	Caller   Caller
}

// ValidationResult carries the outcome plus a snapshot of the ticket after the call.
type ValidationResult struct {
	Outcome ValidationOutcome `json:"outcome"`
	Ticket  *TicketResponse   `json:"ticket,omitempty"`
}
