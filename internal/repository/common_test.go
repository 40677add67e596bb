package repository_test

import (
	"context"
	"testing"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/repository"
	"event-ticket-gate/internal/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, _, cleanup, err := testutil.Setup()
	testutil.RequireInfra(t, err)
	t.Cleanup(cleanup)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) *model.User {
	t.Helper()
	user, err := repository.NewUserRepository(pool).Create(context.Background(), &model.User{
		Name:  "Test User",
		Email: testutil.UniqueEmail("repo"),
	})
	require.NoError(t, err)
	return user
}

func createTestEvent(t *testing.T, pool *pgxpool.Pool, organizerID int, startsAt time.Time) *model.Event {
	t.Helper()
	event, err := repository.NewEventRepository(pool).Create(context.Background(), &model.Event{
		EventID:     uuid.New(),
		Name:        "Repository Night",
		OrganizerID: organizerID,
		StartsAt:    startsAt,
	})
	require.NoError(t, err)
	return event
}

// createTestTicket inserts a valid ticket through a committed transaction.
func createTestTicket(t *testing.T, pool *pgxpool.Pool, event *model.Event, userID int, ticketType string) *model.Ticket {
	t.Helper()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	ticketID := uuid.New()
	ticket, err := repository.NewTicketRepository(pool).Create(ctx, tx, &model.Ticket{
		TicketID:       ticketID,
		EventID:        event.EventID,
		UserID:         userID,
		TicketType:     ticketType,
		QRPayload:      "payload-" + ticketID.String(),
		PurchaseDate:   time.Now().UTC(),
		EventStartDate: event.StartsAt,
		Holder:         model.TicketHolder{Name: "Test Holder", Email: "holder@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return ticket
}
