package service

import (
	"context"
	"errors"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/queue"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock returns the current time. Services fall back to time.Now when nil.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

const auditPublishTimeout = time.Second

// publishAudit never fails the caller: the ticket state change has already committed.
func publishAudit(q queue.AuditQueue, event *model.TicketAuditEvent) {
	if q == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditPublishTimeout)
	defer cancel()

	if err := q.Publish(ctx, event); err != nil {
		logger.WithComponent("service").Warn("failed to publish audit event",
			zap.String("ticket_id", event.TicketID.String()),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}

// issuanceResult is the metrics label for an Issue outcome.
func issuanceResult(err error) string {
	switch {
	case err == nil:
		return "issued"
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return "sold_out"
	case errors.Is(err, apperrors.ErrDuplicateActiveTicket):
		return "duplicate_holder"
	case errors.Is(err, apperrors.ErrInvalidEventState):
		return "event_closed"
	case errors.Is(err, apperrors.ErrUnknownTicketType):
		return "unknown_type"
	case errors.Is(err, apperrors.ErrEventNotFound), errors.Is(err, apperrors.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}
