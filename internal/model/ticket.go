package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the closed set of ticket lifecycle states.
type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "valid"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusValid, TicketStatusUsed, TicketStatusExpired, TicketStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks the transition table. Nothing ever moves back to valid.
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	transitions := map[TicketStatus][]TicketStatus{
		TicketStatusValid:     {TicketStatusUsed, TicketStatusExpired, TicketStatusCancelled},
		TicketStatusUsed:      {},
		TicketStatusExpired:   {},
		TicketStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// TicketHolder is display metadata only.
type TicketHolder struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ticket grants one admission to one event for one holder.
type Ticket struct {
	ID              int          `json:"-" db:"id"`
	TicketID        uuid.UUID    `json:"ticket_id" db:"ticket_id"`
	EventID         uuid.UUID    `json:"event_id" db:"event_id"`
	UserID          int          `json:"user_id" db:"user_id"`
	TicketType      string       `json:"ticket_type" db:"ticket_type"`
	Status          TicketStatus `json:"status" db:"status"`
	QRPayload       string       `json:"qr_payload" db:"qr_payload"`
	ValidationCount int          `json:"validation_count" db:"validation_count"`
	ValidatedAt     *time.Time   `json:"validated_at,omitempty" db:"validated_at"`
	ValidatedBy     *string      `json:"validated_by,omitempty" db:"validated_by"`
	ValidatedScanID *uuid.UUID   `json:"validated_scan_id,omitempty" db:"validated_scan_id"`
	PurchaseDate    time.Time    `json:"purchase_date" db:"purchase_date"`
	EventStartDate  time.Time    `json:"event_start_date" db:"event_start_date"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty" db:"cancelled_at"`
	Holder          TicketHolder `json:"ticket_holder"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// CheckInWindow returns the interval during which the ticket can be redeemed.
func (t *Ticket) CheckInWindow(lead, grace time.Duration) (opens, closes time.Time) {
	return t.EventStartDate.Add(-lead), t.EventStartDate.Add(grace)
}

// IssueTicketRequest is the issuer input.
type IssueTicketRequest struct {
	EventID    uuid.UUID
	UserID     int
	TicketType string
	Holder     TicketHolder
}

// TicketResponse is the public view handed to holders and profile screens.
type TicketResponse struct {
	TicketID        uuid.UUID    `json:"ticket_id"`
	EventID         uuid.UUID    `json:"event_id"`
	TicketType      string       `json:"ticket_type"`
	Status          TicketStatus `json:"status"`
	QRPayload       string       `json:"qr_payload"`
	ValidationCount int          `json:"validation_count"`
	ValidatedAt     *time.Time   `json:"validated_at,omitempty"`
	ValidatedBy     *string      `json:"validated_by,omitempty"`
	ValidatedScanID *uuid.UUID   `json:"validated_scan_id,omitempty"`
	PurchaseDate    time.Time    `json:"purchase_date"`
	EventStartDate  time.Time    `json:"event_start_date"`
	Holder          TicketHolder `json:"ticket_holder"`
}

func (t *Ticket) ToResponse() TicketResponse {
	return TicketResponse{
		TicketID:        t.TicketID,
		EventID:         t.EventID,
		TicketType:      t.TicketType,
		Status:          t.Status,
		QRPayload:       t.QRPayload,
		ValidationCount: t.ValidationCount,
		ValidatedAt:     t.ValidatedAt,
		ValidatedBy:     t.ValidatedBy,
		ValidatedScanID: t.ValidatedScanID,
		PurchaseDate:    t.PurchaseDate,
		EventStartDate:  t.EventStartDate,
		Holder:          t.Holder,
	}
}
