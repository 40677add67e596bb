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

// TicketRepository is the ticket store. Every status change is a conditional
// UPDATE on the current status, so two writers can never both win.
type TicketRepository interface {
	FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error)
	ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error)

	// MarkUsed moves valid -> used, bumps validation_count and remembers the admitting scan.
	// ErrTicketStateChanged if not valid.
	MarkUsed(ctx context.Context, ticketID uuid.UUID, at time.Time, gateID string, scanID uuid.UUID) (*model.Ticket, error)
	// RecordReplay bumps validation_count on an already used ticket. ErrTicketStateChanged if not used.
	RecordReplay(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error)
	// MarkExpired moves valid -> expired. ErrTicketStateChanged if not valid.
	MarkExpired(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error)
	// ExpireStartedBefore expires every valid ticket whose event started before cutoff.
	ExpireStartedBefore(ctx context.Context, cutoff time.Time, at time.Time) ([]uuid.UUID, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error)
	FindByTicketIDWithLock(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.Ticket, error)
	Cancel(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, at time.Time) (*model.Ticket, error)
	CountActiveByHolder(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, userID int, ticketType string) (int, error)
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `
	id, ticket_id, event_id, user_id, ticket_type, status, qr_payload,
	validation_count, validated_at, validated_by, validated_scan_id, purchase_date, event_start_date,
	cancelled_at, holder_name, holder_email, created_at, updated_at
`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.EventID,
		&ticket.UserID,
		&ticket.TicketType,
		&ticket.Status,
		&ticket.QRPayload,
		&ticket.ValidationCount,
		&ticket.ValidatedAt,
		&ticket.ValidatedBy,
		&ticket.ValidatedScanID,
		&ticket.PurchaseDate,
		&ticket.EventStartDate,
		&ticket.CancelledAt,
		&ticket.Holder.Name,
		&ticket.Holder.Email,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// scanTransition maps "no row matched the status guard" to ErrTicketStateChanged.
func scanTransition(row pgx.Row) (*model.Ticket, error) {
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketStateChanged
		}
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (
			ticket_id, event_id, user_id, ticket_type, status, qr_payload,
			purchase_date, event_start_date, holder_name, holder_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + ticketColumns

	return scanTicket(tx.QueryRow(ctx, query,
		ticket.TicketID, ticket.EventID, ticket.UserID, ticket.TicketType,
		model.TicketStatusValid, ticket.QRPayload, ticket.PurchaseDate,
		ticket.EventStartDate, ticket.Holder.Name, ticket.Holder.Email,
	))
}

func (r *TicketRepositoryImpl) FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id = $1`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByTicketIDWithLock(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id = $1 FOR UPDATE`

	ticket, err := scanTicket(tx.QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY event_start_date DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepositoryImpl) MarkUsed(ctx context.Context, ticketID uuid.UUID, at time.Time, gateID string, scanID uuid.UUID) (*model.Ticket, error) {
	var scan *uuid.UUID
	if scanID != uuid.Nil {
		scan = &scanID
	}

	// the status guard is re-evaluated after the row lock is acquired, so a
	// concurrent scan that already committed 'used' makes this match nothing
	query := `
		UPDATE tickets
		SET status = $1,
			validation_count = validation_count + 1,
			validated_at = $2,
			validated_by = NULLIF($3, ''),
			validated_scan_id = $4,
			updated_at = $5
		WHERE ticket_id = $6 AND status = $7
		RETURNING ` + ticketColumns

	return scanTransition(r.pool.QueryRow(ctx, query,
		model.TicketStatusUsed, at, gateID, scan, time.Now().UTC(), ticketID, model.TicketStatusValid,
	))
}

func (r *TicketRepositoryImpl) RecordReplay(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET validation_count = validation_count + 1, updated_at = $1
		WHERE ticket_id = $2 AND status = $3
		RETURNING ` + ticketColumns

	return scanTransition(r.pool.QueryRow(ctx, query, at, ticketID, model.TicketStatusUsed))
}

func (r *TicketRepositoryImpl) MarkExpired(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE ticket_id = $3 AND status = $4
		RETURNING ` + ticketColumns

	return scanTransition(r.pool.QueryRow(ctx, query,
		model.TicketStatusExpired, at, ticketID, model.TicketStatusValid,
	))
}

func (r *TicketRepositoryImpl) ExpireStartedBefore(ctx context.Context, cutoff time.Time, at time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE status = $3 AND event_start_date < $4
		RETURNING ticket_id
	`

	rows, err := r.pool.Query(ctx, query, model.TicketStatusExpired, at, model.TicketStatusValid, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expired := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		expired = append(expired, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expired, nil
}

func (r *TicketRepositoryImpl) Cancel(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $1, cancelled_at = $2, updated_at = $2
		WHERE ticket_id = $3 AND status = $4
		RETURNING ` + ticketColumns

	return scanTransition(tx.QueryRow(ctx, query,
		model.TicketStatusCancelled, at, ticketID, model.TicketStatusValid,
	))
}

func (r *TicketRepositoryImpl) CountActiveByHolder(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, userID int, ticketType string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE event_id = $1
		  AND user_id = $2
		  AND ticket_type = $3
		  AND status IN ($4, $5)
	`

	var count int
	err := tx.QueryRow(ctx, query, eventID, userID, ticketType,
		model.TicketStatusValid, model.TicketStatusUsed,
	).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
