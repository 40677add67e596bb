package model

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
)

type Event struct {
	ID          int         `json:"id" db:"id"`
	EventID     uuid.UUID   `json:"event_id" db:"event_id"`
	Name        string      `json:"name" db:"name"`
	Description *string     `json:"description,omitempty" db:"description"`
	OrganizerID int         `json:"organizer_id" db:"organizer_id"`
	Status      EventStatus `json:"status" db:"status"`
	StartsAt    time.Time   `json:"starts_at" db:"starts_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// AcceptsIssuance reports whether new tickets may be sold at now.
func (e *Event) AcceptsIssuance(now time.Time) bool {
	return e.Status == EventStatusScheduled && now.Before(e.StartsAt)
}

// TicketType is the capacity record for one category of an event.
type TicketType struct {
	ID           int       `json:"id" db:"id"`
	EventID      uuid.UUID `json:"event_id" db:"event_id"`
	Name         string    `json:"name" db:"name"`
	Capacity     int       `json:"capacity" db:"capacity"`
	Remaining    int       `json:"remaining" db:"remaining"`
	OnePerHolder bool      `json:"one_per_holder" db:"one_per_holder"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// EventResponse is the event view with its ticket types.
type EventResponse struct {
	Event
	TicketTypes []*TicketType `json:"ticket_types"`
}
