package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/monitoring"
	"event-ticket-gate/internal/queue"
	"event-ticket-gate/internal/repository"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A lost compare-and-set leaves the ticket in a terminal state, so one re-read always resolves it.
const maxResolveAttempts = 3

type ValidationService interface {
	// Validate resolves one gate scan. Business outcomes come back with a nil error;
	// only infrastructure failures are errors.
	Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error)
	// ExpireDue moves every valid ticket whose check-in window has closed to expired.
	ExpireDue(ctx context.Context) (int, error)
}

type ValidationServiceImpl struct {
	tickets     repository.TicketRepository
	events      repository.EventRepository
	auditQueue  queue.AuditQueue
	checkInLead time.Duration
	gracePeriod time.Duration
	clock       Clock
}

func NewValidationService(
	tickets repository.TicketRepository,
	events repository.EventRepository,
	auditQueue queue.AuditQueue,
	checkInLead time.Duration,
	gracePeriod time.Duration,
	clock Clock,
) ValidationService {
	return &ValidationServiceImpl{
		tickets:     tickets,
		events:      events,
		auditQueue:  auditQueue,
		checkInLead: checkInLead,
		gracePeriod: gracePeriod,
		clock:       clock,
	}
}

func (s *ValidationServiceImpl) Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
	started := time.Now()
	if req.ScanTime.IsZero() {
		req.ScanTime = s.clock.now()
	}

	outcome, ticket, err := s.validate(ctx, req)
	if err != nil {
		logger.WithComponent("service").Error("validation failed",
			zap.String("ticket_id", req.TicketID.String()),
			zap.String("gate_id", req.GateID),
			zap.Error(err),
		)
		return nil, err
	}

	monitoring.RecordValidation(outcome, time.Since(started))

	result := &model.ValidationResult{Outcome: outcome}
	if ticket != nil {
		resp := ticket.ToResponse()
		result.Ticket = &resp
	}

	if outcome != model.OutcomeNotFound {
		event := &model.TicketAuditEvent{
			TicketID:   req.TicketID,
			Kind:       model.AuditKindScanned,
			Outcome:    outcome,
			GateID:     req.GateID,
			OccurredAt: req.ScanTime,
		}
		// retries of one scan collapse into one audit row per outcome
		if req.ScanID != uuid.Nil {
			event.RequestID = fmt.Sprintf("scan:%s:%s", req.ScanID, outcome)
		}
		publishAudit(s.auditQueue, event)
	}

	return result, nil
}

func (s *ValidationServiceImpl) validate(ctx context.Context, req model.ValidateRequest) (model.ValidationOutcome, *model.Ticket, error) {
	ticket, err := s.tickets.FindByTicketID(ctx, req.TicketID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return model.OutcomeNotFound, nil, nil
		}
		return "", nil, err
	}

	if err := s.authorize(ctx, ticket, req.Caller); err != nil {
		return "", nil, err
	}

	// a gate bound to another event learns nothing about the ticket
	if req.EventID != nil && *req.EventID != ticket.EventID {
		return model.OutcomeWrongEvent, nil, nil
	}

	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		outcome, resolved, err := s.resolve(ctx, ticket, req)
		if !errors.Is(err, apperrors.ErrTicketStateChanged) {
			return outcome, resolved, err
		}

		// another scan or the sweeper won the race; decide from the winner's state
		monitoring.RecordCASConflict()
		ticket, err = s.tickets.FindByTicketID(ctx, req.TicketID)
		if err != nil {
			return "", nil, err
		}
	}

	return "", nil, fmt.Errorf("ticket %s: %w", req.TicketID, apperrors.ErrTicketStateChanged)
}

// resolve applies the transition table to the current snapshot. ErrTicketStateChanged
// means the snapshot went stale before the conditional update ran.
func (s *ValidationServiceImpl) resolve(ctx context.Context, ticket *model.Ticket, req model.ValidateRequest) (model.ValidationOutcome, *model.Ticket, error) {
	switch ticket.Status {
	case model.TicketStatusValid:
		opens, closes := ticket.CheckInWindow(s.checkInLead, s.gracePeriod)
		if req.ScanTime.Before(opens) {
			return model.OutcomeNotYetOpen, ticket, nil
		}
		if req.ScanTime.After(closes) {
			expired, err := s.tickets.MarkExpired(ctx, ticket.TicketID, req.ScanTime)
			if err != nil {
				return "", nil, err
			}
			return model.OutcomeExpired, expired, nil
		}

		used, err := s.tickets.MarkUsed(ctx, ticket.TicketID, req.ScanTime, req.GateID, req.ScanID)
		if err != nil {
			return "", nil, err
		}
		return model.OutcomeAccepted, used, nil

	case model.TicketStatusUsed:
		// a retry of the scan that admitted the ticket gets the same answer again
		if req.ScanID != uuid.Nil && ticket.ValidatedScanID != nil && *ticket.ValidatedScanID == req.ScanID {
			return model.OutcomeAccepted, ticket, nil
		}

		replayed, err := s.tickets.RecordReplay(ctx, ticket.TicketID, req.ScanTime)
		if err != nil {
			return "", nil, err
		}
		return model.OutcomeAlreadyUsed, replayed, nil

	case model.TicketStatusExpired:
		return model.OutcomeExpired, ticket, nil

	case model.TicketStatusCancelled:
		return model.OutcomeCancelled, ticket, nil
	}

	return "", nil, fmt.Errorf("ticket %s has unknown status %q", ticket.TicketID, ticket.Status)
}

// authorize keeps organizers to their own events. Gate and admin callers may scan any ticket.
func (s *ValidationServiceImpl) authorize(ctx context.Context, ticket *model.Ticket, caller model.Caller) error {
	if caller.Role != model.RoleOrganizer {
		return nil
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

func (s *ValidationServiceImpl) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.now()

	expired, err := s.tickets.ExpireStartedBefore(ctx, now.Add(-s.gracePeriod), now)
	if err != nil {
		return 0, err
	}

	for _, ticketID := range expired {
		publishAudit(s.auditQueue, &model.TicketAuditEvent{
			TicketID:   ticketID,
			Kind:       model.AuditKindExpired,
			Outcome:    model.OutcomeExpired,
			OccurredAt: now,
		})
	}
	monitoring.RecordExpired(len(expired))

	return len(expired), nil
}
