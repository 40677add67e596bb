package repository

import (
	"context"
	"fmt"

	"event-ticket-gate/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository interface {
	// Insert is idempotent on RequestID so redelivered stream messages are harmless.
	Insert(ctx context.Context, event *model.TicketAuditEvent) error
	ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error)
}

type AuditRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &AuditRepositoryImpl{
		pool: pool,
	}
}

func (r *AuditRepositoryImpl) Insert(ctx context.Context, event *model.TicketAuditEvent) error {
	query := `
		INSERT INTO ticket_audit_events (request_id, ticket_id, kind, outcome, gate_id, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		event.RequestID, event.TicketID, event.Kind, event.Outcome,
		event.GateID, event.ActorID, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

func (r *AuditRepositoryImpl) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error) {
	query := `
		SELECT id, request_id, ticket_id, kind, outcome, gate_id, actor_id, occurred_at
		FROM ticket_audit_events
		WHERE ticket_id = $1
		ORDER BY occurred_at, id
	`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.TicketAuditEvent, 0)
	for rows.Next() {
		var event model.TicketAuditEvent
		err := rows.Scan(
			&event.ID,
			&event.RequestID,
			&event.TicketID,
			&event.Kind,
			&event.Outcome,
			&event.GateID,
			&event.ActorID,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
