package mocks

import (
	"context"
	"time"

	"event-ticket-gate/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type TicketRepositoryMock struct {
	mock.Mock
}

func (m *TicketRepositoryMock) FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) ListByUserID(ctx context.Context, userID int) ([]*model.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) MarkUsed(ctx context.Context, ticketID uuid.UUID, at time.Time, gateID string, scanID uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, at, gateID, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) RecordReplay(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) MarkExpired(ctx context.Context, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	args := m.Called(ctx, ticketID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) ExpireStartedBefore(ctx context.Context, cutoff time.Time, at time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// Create also accepts a func(ctx, tx, ticket) *model.Ticket as its first return value.
func (m *TicketRepositoryMock) Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error) {
	args := m.Called(ctx, tx, ticket)
	if fn, ok := args.Get(0).(func(context.Context, pgx.Tx, *model.Ticket) *model.Ticket); ok {
		return fn(ctx, tx, ticket), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) FindByTicketIDWithLock(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, tx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) Cancel(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID, at time.Time) (*model.Ticket, error) {
	args := m.Called(ctx, tx, ticketID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepositoryMock) CountActiveByHolder(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, userID int, ticketType string) (int, error) {
	args := m.Called(ctx, tx, eventID, userID, ticketType)
	return args.Int(0), args.Error(1)
}

type EventRepositoryMock struct {
	mock.Mock
}

func (m *EventRepositoryMock) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventRepositoryMock) CreateTicketType(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	args := m.Called(ctx, ticketType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *EventRepositoryMock) ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]*model.TicketType, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketType), args.Error(1)
}

func (m *EventRepositoryMock) FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*model.TicketType, error) {
	args := m.Called(ctx, eventID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *EventRepositoryMock) DecrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error {
	args := m.Called(ctx, tx, eventID, name)
	return args.Error(0)
}

func (m *EventRepositoryMock) IncrementRemaining(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, name string) error {
	args := m.Called(ctx, tx, eventID, name)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type AuditRepositoryMock struct {
	mock.Mock
}

func (m *AuditRepositoryMock) Insert(ctx context.Context, event *model.TicketAuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AuditRepositoryMock) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*model.TicketAuditEvent, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketAuditEvent), args.Error(1)
}
