package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CapacityInventoryMock struct {
	mock.Mock
}

func (m *CapacityInventoryMock) WarmUp(ctx context.Context, eventID uuid.UUID, ticketType string, remaining int, onePerHolder bool) (bool, error) {
	args := m.Called(ctx, eventID, ticketType, remaining, onePerHolder)
	return args.Bool(0), args.Error(1)
}

func (m *CapacityInventoryMock) Reserve(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error {
	args := m.Called(ctx, eventID, ticketType, userID)
	return args.Error(0)
}

func (m *CapacityInventoryMock) Release(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error {
	args := m.Called(ctx, eventID, ticketType, userID)
	return args.Error(0)
}
