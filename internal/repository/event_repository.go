package repository

import (
	"context"
	"errors"
	"time"

	"event-ticket-gate/internal/model"
	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository reads events and owns the per ticket-type capacity counters.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	CreateTicketType(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]*model.TicketType, error)
	FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*model.TicketType, error)

	// Transaction methods
	DecrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error
	IncrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (event_id, name, description, organizer_id, status, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, event_id, name, description, organizer_id, status, starts_at, created_at, updated_at
	`
	if event.Status == "" {
		event.Status = model.EventStatusScheduled
	}
	err := r.pool.QueryRow(ctx, query,
		event.EventID, event.Name, event.Description, event.OrganizerID, event.Status, event.StartsAt,
	).Scan(
		&event.ID,
		&event.EventID,
		&event.Name,
		&event.Description,
		&event.OrganizerID,
		&event.Status,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *EventRepositoryImpl) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, event_id, name, description, organizer_id, status, starts_at, created_at, updated_at
		FROM events
		WHERE event_id = $1
	`

	var event model.Event
	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&event.ID,
		&event.EventID,
		&event.Name,
		&event.Description,
		&event.OrganizerID,
		&event.Status,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

func (r *EventRepositoryImpl) CreateTicketType(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	query := `
		INSERT INTO ticket_types (event_id, name, capacity, remaining, one_per_holder)
		VALUES ($1, $2, $3, $3, $4)
		RETURNING id, event_id, name, capacity, remaining, one_per_holder, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		ticketType.EventID, ticketType.Name, ticketType.Capacity, ticketType.OnePerHolder,
	).Scan(
		&ticketType.ID,
		&ticketType.EventID,
		&ticketType.Name,
		&ticketType.Capacity,
		&ticketType.Remaining,
		&ticketType.OnePerHolder,
		&ticketType.CreatedAt,
		&ticketType.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ticketType, nil
}

func (r *EventRepositoryImpl) ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]*model.TicketType, error) {
	query := `
		SELECT id, event_id, name, capacity, remaining, one_per_holder, created_at, updated_at
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticketTypes := make([]*model.TicketType, 0)
	for rows.Next() {
		var tt model.TicketType
		err := rows.Scan(
			&tt.ID,
			&tt.EventID,
			&tt.Name,
			&tt.Capacity,
			&tt.Remaining,
			&tt.OnePerHolder,
			&tt.CreatedAt,
			&tt.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		ticketTypes = append(ticketTypes, &tt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ticketTypes, nil
}

func (r *EventRepositoryImpl) FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*model.TicketType, error) {
	query := `
		SELECT id, event_id, name, capacity, remaining, one_per_holder, created_at, updated_at
		FROM ticket_types
		WHERE event_id = $1 AND name = $2
	`

	var tt model.TicketType
	err := r.pool.QueryRow(ctx, query, eventID, name).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Capacity,
		&tt.Remaining,
		&tt.OnePerHolder,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownTicketType
		}
		return nil, err
	}

	return &tt, nil
}

// DecrementRemaining is the authoritative capacity check-and-decrement. The
// row lock it takes is held until the surrounding transaction ends, which
// serialises concurrent issuance for the same event and type.
func (r *EventRepositoryImpl) DecrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error {
	query := `
		UPDATE ticket_types
		SET remaining = remaining - 1, updated_at = $1
		WHERE event_id = $2 AND name = $3 AND remaining >= 1
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), eventID, name)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrCapacityExceeded
	}

	return nil
}

func (r *EventRepositoryImpl) IncrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error {
	query := `
		UPDATE ticket_types
		SET remaining = remaining + 1, updated_at = $1
		WHERE event_id = $2 AND name = $3 AND remaining < capacity
	`

	result, err := tx.Exec(ctx, query, time.Now().UTC(), eventID, name)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrUnknownTicketType
	}

	return nil
}
