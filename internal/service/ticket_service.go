package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticket-gate/internal/cache"
	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/monitoring"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/internal/queue"
	"event-ticket-gate/internal/repository"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TicketService interface {
	// Issue creates one valid ticket, enforcing capacity and the one-per-holder rule.
	Issue(ctx context.Context, req model.IssueTicketRequest) (*model.Ticket, error)
	GetByTicketID(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID int) ([]*model.Ticket, error)
	// Cancel moves valid -> cancelled and returns the unit to capacity.
	Cancel(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error)
}

type TicketServiceImpl struct {
	db         repository.TxBeginner
	tickets    repository.TicketRepository
	events     repository.EventRepository
	users      repository.UserRepository
	inventory  cache.CapacityInventory
	codec      *qrcode.Codec
	auditQueue queue.AuditQueue
	clock      Clock
}

func NewTicketService(
	db repository.TxBeginner,
	tickets repository.TicketRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	inventory cache.CapacityInventory,
	codec *qrcode.Codec,
	auditQueue queue.AuditQueue,
	clock Clock,
) TicketService {
	return &TicketServiceImpl{
		db:         db,
		tickets:    tickets,
		events:     events,
		users:      users,
		inventory:  inventory,
		codec:      codec,
		auditQueue: auditQueue,
		clock:      clock,
	}
}

func (s *TicketServiceImpl) Issue(ctx context.Context, req model.IssueTicketRequest) (*model.Ticket, error) {
	ticket, err := s.issue(ctx, req)
	monitoring.RecordIssuance(issuanceResult(err))
	return ticket, err
}

func (s *TicketServiceImpl) issue(ctx context.Context, req model.IssueTicketRequest) (*model.Ticket, error) {
	now := s.clock.now()

	// 1. event and holder must be eligible
	event, err := s.events.FindByEventID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.AcceptsIssuance(now) {
		return nil, apperrors.ErrInvalidEventState
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.ErrUserNotFound
	}

	ticketType, err := s.events.FindTicketType(ctx, event.EventID, req.TicketType)
	if err != nil {
		return nil, err
	}

	// 2. Redis fast path rejects sold-out and duplicate requests before Postgres
	if err := s.reserve(ctx, ticketType, req.UserID); err != nil {
		return nil, err
	}

	holder := req.Holder
	if holder.Name == "" {
		holder.Name = user.Name
	}
	if holder.Email == "" {
		holder.Email = user.Email
	}

	// 3. authoritative write; the reservation is returned on any failure
	ticket, err := s.persist(ctx, event, ticketType, req.UserID, holder, now)
	if err != nil {
		// background context: the release must run even if the request was cancelled
		if rerr := s.inventory.Release(context.Background(), event.EventID, ticketType.Name, req.UserID); rerr != nil {
			logger.WithComponent("service").Error("failed to release capacity reservation",
				zap.String("event_id", event.EventID.String()),
				zap.String("ticket_type", ticketType.Name),
				zap.Int("user_id", req.UserID),
				zap.Error(rerr),
			)
		}
		return nil, err
	}

	publishAudit(s.auditQueue, &model.TicketAuditEvent{
		TicketID:   ticket.TicketID,
		Kind:       model.AuditKindIssued,
		ActorID:    req.UserID,
		OccurredAt: now,
	})

	return ticket, nil
}

// reserve takes one unit from the Redis inventory, warming it from Postgres once if it is cold.
func (s *TicketServiceImpl) reserve(ctx context.Context, ticketType *model.TicketType, userID int) error {
	err := s.inventory.Reserve(ctx, ticketType.EventID, ticketType.Name, userID)
	if !errors.Is(err, apperrors.ErrInventoryNotReady) {
		return err
	}

	if _, err := s.inventory.WarmUp(ctx, ticketType.EventID, ticketType.Name, ticketType.Remaining, ticketType.OnePerHolder); err != nil {
		return fmt.Errorf("warm up inventory: %w", err)
	}
	return s.inventory.Reserve(ctx, ticketType.EventID, ticketType.Name, userID)
}

func (s *TicketServiceImpl) persist(ctx context.Context, event *model.Event, ticketType *model.TicketType, userID int, holder model.TicketHolder, now time.Time) (*model.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// the ticket_types row lock taken here is held until commit, so the
	// holder count below cannot race another issuance of the same type
	if err := s.events.DecrementRemaining(ctx, tx, event.EventID, ticketType.Name); err != nil {
		return nil, err
	}

	if ticketType.OnePerHolder {
		active, err := s.tickets.CountActiveByHolder(ctx, tx, event.EventID, userID, ticketType.Name)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, apperrors.ErrDuplicateActiveTicket
		}
	}

	ticketID := uuid.New()
	ticket, err := s.tickets.Create(ctx, tx, &model.Ticket{
		TicketID:       ticketID,
		EventID:        event.EventID,
		UserID:         userID,
		TicketType:     ticketType.Name,
		Status:         model.TicketStatusValid,
		QRPayload:      s.codec.Encode(ticketID),
		PurchaseDate:   now,
		EventStartDate: event.StartsAt,
		Holder:         holder,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ticket, nil
}

func (s *TicketServiceImpl) GetByTicketID(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error) {
	ticket, err := s.tickets.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, ticket, caller); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketServiceImpl) ListByUser(ctx context.Context, userID int) ([]*model.Ticket, error) {
	return s.tickets.ListByUserID(ctx, userID)
}

func (s *TicketServiceImpl) Cancel(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error) {
	now := s.clock.now()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.FindByTicketIDWithLock(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, ticket, caller); err != nil {
		return nil, err
	}
	if !ticket.Status.CanTransitionTo(model.TicketStatusCancelled) {
		return nil, apperrors.ErrTicketNotValid
	}

	cancelled, err := s.tickets.Cancel(ctx, tx, ticketID, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketStateChanged) {
			return nil, apperrors.ErrTicketNotValid
		}
		return nil, err
	}

	if err := s.events.IncrementRemaining(ctx, tx, cancelled.EventID, cancelled.TicketType); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.inventory.Release(context.Background(), cancelled.EventID, cancelled.TicketType, cancelled.UserID); err != nil {
		logger.WithComponent("service").Warn("failed to release capacity after cancellation",
			zap.String("ticket_id", ticketID.String()),
			zap.Error(err),
		)
	}

	publishAudit(s.auditQueue, &model.TicketAuditEvent{
		TicketID:   cancelled.TicketID,
		Kind:       model.AuditKindCancelled,
		ActorID:    caller.UserID,
		OccurredAt: now,
	})

	return cancelled, nil
}

// authorize admits the holder, an admin, or the organizer of the ticket's event.
func (s *TicketServiceImpl) authorize(ctx context.Context, ticket *model.Ticket, caller model.Caller) error {
	if caller.CanActFor(ticket.UserID) {
		return nil
	}
	if caller.Role != model.RoleOrganizer {
		return apperrors.ErrForbidden
	}

	event, err := s.events.FindByEventID(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if event.OrganizerID != caller.UserID {
		return apperrors.ErrForbidden
	}
	return nil
}
