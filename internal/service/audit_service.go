package service

import (
	"context"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/repository"

	"github.com/google/uuid"
)

type AuditService interface {
	// Record persists one audit event; redelivery of the same RequestID is a no-op.
	Record(ctx context.Context, event *model.TicketAuditEvent) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error)
}

type AuditServiceImpl struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &AuditServiceImpl{repo: repo}
}

func (s *AuditServiceImpl) Record(ctx context.Context, event *model.TicketAuditEvent) error {
	return s.repo.Insert(ctx, event)
}

func (s *AuditServiceImpl) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error) {
	return s.repo.ListByTicketID(ctx, ticketID)
}
