package service

import (
	"context"

	"event-ticket-gate/internal/cache"
	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/repository"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.EventResponse, error)
	// OpenForSale warms the Redis capacity inventory for every ticket type of the event.
	OpenForSale(ctx context.Context, eventID uuid.UUID, caller model.Caller) (*model.EventResponse, error)
}

type EventServiceImpl struct {
	repo      repository.EventRepository
	inventory cache.CapacityInventory
}

func NewEventService(repo repository.EventRepository, inventory cache.CapacityInventory) EventService {
	return &EventServiceImpl{repo: repo, inventory: inventory}
}

func (s *EventServiceImpl) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.EventResponse, error) {
	event, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ticketTypes, err := s.repo.ListTicketTypes(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &model.EventResponse{Event: *event, TicketTypes: ticketTypes}, nil
}

func (s *EventServiceImpl) OpenForSale(ctx context.Context, eventID uuid.UUID, caller model.Caller) (*model.EventResponse, error) {
	resp, err := s.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !(caller.Role == model.RoleOrganizer && resp.OrganizerID == caller.UserID) {
		return nil, apperrors.ErrForbidden
	}
	if resp.Status != model.EventStatusScheduled {
		return nil, apperrors.ErrInvalidEventState
	}

	for _, tt := range resp.TicketTypes {
		warmed, err := s.inventory.WarmUp(ctx, eventID, tt.Name, tt.Remaining, tt.OnePerHolder)
		if err != nil {
			return nil, err
		}
		logger.WithComponent("service").Info("capacity inventory ready",
			zap.String("event_id", eventID.String()),
			zap.String("ticket_type", tt.Name),
			zap.Int("remaining", tt.Remaining),
			zap.Bool("warmed", warmed),
		)
	}

	return resp, nil
}
