package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"event-ticket-gate/internal/cache"
	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/internal/queue"
	"event-ticket-gate/internal/repository"
	"event-ticket-gate/internal/service"
	"event-ticket-gate/internal/testutil"
	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrationEnv struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	users     repository.UserRepository
	events    repository.EventRepository
	tickets   repository.TicketRepository
	issuer    service.TicketService
	validator service.ValidationService
	organizer *model.User
	event     *model.Event
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	pool, rdb, cleanup, err := testutil.Setup()
	testutil.RequireInfra(t, err)
	t.Cleanup(cleanup)

	codec, err := qrcode.NewCodec("integration-secret")
	require.NoError(t, err)

	env := &integrationEnv{
		pool:    pool,
		rdb:     rdb,
		users:   repository.NewUserRepository(pool),
		events:  repository.NewEventRepository(pool),
		tickets: repository.NewTicketRepository(pool),
	}
	audit := queue.NewMemoryAuditQueue(10000)
	inventory := cache.NewRedisCapacityInventory(rdb)
	env.issuer = service.NewTicketService(pool, env.tickets, env.events, env.users, inventory, codec, audit, nil)
	env.validator = service.NewValidationService(env.tickets, env.events, audit, 2*time.Hour, 30*time.Minute, nil)

	ctx := context.Background()
	env.organizer, err = env.users.Create(ctx, &model.User{Name: "Organizer", Email: testutil.UniqueEmail("organizer")})
	require.NoError(t, err)

	env.event, err = env.events.Create(ctx, &model.Event{
		EventID:     uuid.New(),
		Name:        "Integration Night",
		OrganizerID: env.organizer.ID,
		StartsAt:    time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
	})
	require.NoError(t, err)

	return env
}

func (env *integrationEnv) addTicketType(t *testing.T, name string, capacity int, onePerHolder bool) {
	t.Helper()
	_, err := env.events.CreateTicketType(context.Background(), &model.TicketType{
		EventID:      env.event.EventID,
		Name:         name,
		Capacity:     capacity,
		OnePerHolder: onePerHolder,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = env.rdb.Del(context.Background(),
			cache.InfoKey(env.event.EventID, name), cache.HoldersKey(env.event.EventID, name)).Err()
	})
}

func (env *integrationEnv) createUsers(t *testing.T, n int) []*model.User {
	t.Helper()
	users := make([]*model.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := env.users.Create(context.Background(), &model.User{
			Name:  fmt.Sprintf("Buyer %d", i),
			Email: testutil.UniqueEmail(fmt.Sprintf("buyer%d", i)),
		})
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

func TestIntegration_Issue_NoOversell(t *testing.T) {
	env := setupIntegration(t)
	const capacity = 10
	env.addTicketType(t, "general", capacity, false)
	buyers := env.createUsers(t, 40)

	var wg sync.WaitGroup
	var mu sync.Mutex
	issued, soldOut := 0, 0
	for _, buyer := range buyers {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := env.issuer.Issue(context.Background(), model.IssueTicketRequest{
				EventID: env.event.EventID, UserID: userID, TicketType: "general",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				issued++
			case errors.Is(err, apperrors.ErrCapacityExceeded):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(buyer.ID)
	}
	wg.Wait()

	assert.Equal(t, capacity, issued)
	assert.Equal(t, len(buyers)-capacity, soldOut)

	tt, err := env.events.FindTicketType(context.Background(), env.event.EventID, "general")
	require.NoError(t, err)
	assert.Equal(t, 0, tt.Remaining)

	var count int
	require.NoError(t, env.pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM tickets WHERE event_id = $1", env.event.EventID).Scan(&count))
	assert.Equal(t, capacity, count)
}

func TestIntegration_Issue_OnePerHolder(t *testing.T) {
	env := setupIntegration(t)
	env.addTicketType(t, "vip", 5, true)
	buyer := env.createUsers(t, 1)[0]

	var wg sync.WaitGroup
	var mu sync.Mutex
	issued := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.issuer.Issue(context.Background(), model.IssueTicketRequest{
				EventID: env.event.EventID, UserID: buyer.ID, TicketType: "vip",
			})
			if err == nil {
				mu.Lock()
				issued++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveTicket)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, issued)
}

func TestIntegration_Validate_ConcurrentGates(t *testing.T) {
	env := setupIntegration(t)
	env.addTicketType(t, "general", 1, false)
	buyer := env.createUsers(t, 1)[0]

	ticket, err := env.issuer.Issue(context.Background(), model.IssueTicketRequest{
		EventID: env.event.EventID, UserID: buyer.ID, TicketType: "general",
	})
	require.NoError(t, err)

	scanTime := env.event.StartsAt.Add(-time.Hour)
	const gates = 20
	outcomes := make(chan model.ValidationOutcome, gates)
	var wg sync.WaitGroup
	for i := 0; i < gates; i++ {
		wg.Add(1)
		go func(gate int) {
			defer wg.Done()
			res, err := env.validator.Validate(context.Background(), model.ValidateRequest{
				TicketID: ticket.TicketID,
				ScanTime: scanTime,
				GateID:   fmt.Sprintf("gate-%d", gate),
				ScanID:   uuid.New(),
			})
			if err != nil {
				t.Errorf("validate: %v", err)
				return
			}
			outcomes <- res.Outcome
		}(i)
	}
	wg.Wait()
	close(outcomes)

	accepted := 0
	for o := range outcomes {
		if o == model.OutcomeAccepted {
			accepted++
		} else {
			assert.Equal(t, model.OutcomeAlreadyUsed, o)
		}
	}
	assert.Equal(t, 1, accepted)

	stored, err := env.tickets.FindByTicketID(context.Background(), ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusUsed, stored.Status)
	assert.Equal(t, gates, stored.ValidationCount)
	require.NotNil(t, stored.ValidatedBy)
}

func TestIntegration_Validate_RetriedScanIsIdempotent(t *testing.T) {
	env := setupIntegration(t)
	env.addTicketType(t, "general", 5, false)
	buyer := env.createUsers(t, 1)[0]
	ctx := context.Background()

	ticket, err := env.issuer.Issue(ctx, model.IssueTicketRequest{EventID: env.event.EventID, UserID: buyer.ID, TicketType: "general"})
	require.NoError(t, err)

	scan := model.ValidateRequest{
		TicketID: ticket.TicketID,
		ScanTime: env.event.StartsAt.Add(-time.Hour),
		GateID:   "north-1",
		ScanID:   uuid.New(),
	}

	first, err := env.validator.Validate(ctx, scan)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAccepted, first.Outcome)

	// the gate never saw the first answer and sends the same scan again
	retried, err := env.validator.Validate(ctx, scan)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAccepted, retried.Outcome)
	assert.Equal(t, 1, retried.Ticket.ValidationCount)

	// a fresh scan of the same code at the same gate is a replay
	scan.ScanID = uuid.New()
	replayed, err := env.validator.Validate(ctx, scan)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyUsed, replayed.Outcome)
	assert.Equal(t, 2, replayed.Ticket.ValidationCount)
}

func TestIntegration_Cancel_RestoresCapacity(t *testing.T) {
	env := setupIntegration(t)
	env.addTicketType(t, "general", 1, false)
	buyers := env.createUsers(t, 2)
	ctx := context.Background()

	ticket, err := env.issuer.Issue(ctx, model.IssueTicketRequest{EventID: env.event.EventID, UserID: buyers[0].ID, TicketType: "general"})
	require.NoError(t, err)

	_, err = env.issuer.Issue(ctx, model.IssueTicketRequest{EventID: env.event.EventID, UserID: buyers[1].ID, TicketType: "general"})
	require.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	cancelled, err := env.issuer.Cancel(ctx, ticket.TicketID, model.Caller{UserID: buyers[0].ID, Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCancelled, cancelled.Status)

	_, err = env.issuer.Issue(ctx, model.IssueTicketRequest{EventID: env.event.EventID, UserID: buyers[1].ID, TicketType: "general"})
	require.NoError(t, err)

	res, err := env.validator.Validate(ctx, model.ValidateRequest{TicketID: ticket.TicketID, ScanTime: env.event.StartsAt})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCancelled, res.Outcome)
}
