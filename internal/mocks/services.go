package mocks

import (
	"context"

	"event-ticket-gate/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type TicketServiceMock struct {
	mock.Mock
}

func (m *TicketServiceMock) Issue(ctx context.Context, req model.IssueTicketRequest) (*model.Ticket, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) GetByTicketID(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) ListByUser(ctx context.Context, userID int) ([]*model.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) Cancel(ctx context.Context, ticketID uuid.UUID, caller model.Caller) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

type ValidationServiceMock struct {
	mock.Mock
}

func (m *ValidationServiceMock) Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ValidationResult), args.Error(1)
}

func (m *ValidationServiceMock) ExpireDue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type EventServiceMock struct {
	mock.Mock
}

func (m *EventServiceMock) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.EventResponse, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventResponse), args.Error(1)
}

func (m *EventServiceMock) OpenForSale(ctx context.Context, eventID uuid.UUID, caller model.Caller) (*model.EventResponse, error) {
	args := m.Called(ctx, eventID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventResponse), args.Error(1)
}

type AuditServiceMock struct {
	mock.Mock
}

func (m *AuditServiceMock) Record(ctx context.Context, event *model.TicketAuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AuditServiceMock) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketAuditEvent), args.Error(1)
}
