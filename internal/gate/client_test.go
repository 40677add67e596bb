package gate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"event-ticket-gate/internal/gate"
	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/qrcode"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatorFunc func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error)

func (f validatorFunc) Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
	return f(ctx, req)
}

func newCodec(t *testing.T) *qrcode.Codec {
	t.Helper()
	codec, err := qrcode.NewCodec("gate-secret")
	require.NoError(t, err)
	return codec
}

func fastConfig() gate.Config {
	return gate.Config{GateID: "north-1", Retries: 2, RetryBackoff: time.Millisecond, HistorySize: 10}
}

func TestScan_AgainstServer(t *testing.T) {
	codec := newCodec(t)
	ticketID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gate/validate", r.URL.Path)
		assert.Equal(t, "Bearer gate-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, ticketID.String(), body["ticket_id"])
		assert.Equal(t, "north-1", body["gate_id"])
		assert.NotContains(t, body, "scan_time")
		scanID, _ := body["scan_id"].(string)
		_, err := uuid.Parse(scanID)
		assert.NoError(t, err, "scan_id %q", scanID)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"outcome":"accepted","ticket":{"status":"used","validation_count":1}}`)
	}))
	defer server.Close()

	client := gate.NewClient(codec, gate.NewHTTPValidator(server.URL+"/", "gate-token", time.Second), fastConfig())
	result := client.Scan(context.Background(), codec.Encode(ticketID))

	assert.True(t, result.Admit())
	assert.Equal(t, gate.ReasonAccepted, result.Reason)
	assert.Equal(t, ticketID, result.TicketID)
	require.NotNil(t, result.Ticket)
	assert.Equal(t, model.TicketStatusUsed, result.Ticket.Status)
}

func TestScan_OutcomesRenderDistinctly(t *testing.T) {
	codec := newCodec(t)
	outcomes := []model.ValidationOutcome{
		model.OutcomeAlreadyUsed,
		model.OutcomeExpired,
		model.OutcomeCancelled,
		model.OutcomeNotFound,
		model.OutcomeNotYetOpen,
		model.OutcomeWrongEvent,
	}

	seen := map[string]model.ValidationOutcome{}
	for _, outcome := range outcomes {
		t.Run(string(outcome), func(t *testing.T) {
			client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
				return &model.ValidationResult{Outcome: outcome}, nil
			}), fastConfig())

			result := client.Scan(context.Background(), codec.Encode(uuid.New()))

			assert.False(t, result.Admit())
			assert.Equal(t, gate.VerdictRed, result.Verdict)
			assert.Equal(t, string(outcome), string(result.Reason))
			assert.NotEmpty(t, result.Action)
			_, dup := seen[result.Message]
			assert.False(t, dup, "message %q reused", result.Message)
			seen[result.Message] = outcome
		})
	}
}

func TestScan_InvalidCodeSkipsNetwork(t *testing.T) {
	codec := newCodec(t)
	forger, err := qrcode.NewCodec("someone-else")
	require.NoError(t, err)

	var calls int32
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		atomic.AddInt32(&calls, 1)
		return &model.ValidationResult{Outcome: model.OutcomeAccepted}, nil
	}), fastConfig())

	unreadable := client.Scan(context.Background(), "not a ticket")
	forged := client.Scan(context.Background(), forger.Encode(uuid.New()))

	assert.Equal(t, gate.ReasonUnreadable, unreadable.Reason)
	assert.Equal(t, gate.ReasonForged, forged.Reason)
	assert.False(t, unreadable.Admit())
	assert.False(t, forged.Admit())
	assert.NotEqual(t, unreadable.Message, forged.Message)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestScan_ServerUnreachable(t *testing.T) {
	codec := newCodec(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := gate.NewClient(codec, gate.NewHTTPValidator(server.URL, "gate-token", 100*time.Millisecond), fastConfig())
	result := client.Scan(context.Background(), codec.Encode(uuid.New()))

	assert.False(t, result.Admit())
	assert.Equal(t, gate.ReasonUnavailable, result.Reason)
	assert.Equal(t, "Do not admit. Retry", result.Action)
}

func TestScan_RetriesServerErrors(t *testing.T) {
	codec := newCodec(t)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := gate.NewClient(codec, gate.NewHTTPValidator(server.URL, "gate-token", time.Second), fastConfig())
	result := client.Scan(context.Background(), codec.Encode(uuid.New()))

	assert.Equal(t, gate.ReasonUnavailable, result.Reason)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestScan_NotAuthorizedIsNotRetried(t *testing.T) {
	codec := newCodec(t)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"Forbidden"}`)
	}))
	defer server.Close()

	client := gate.NewClient(codec, gate.NewHTTPValidator(server.URL, "holder-token", time.Second), fastConfig())
	result := client.Scan(context.Background(), codec.Encode(uuid.New()))

	assert.Equal(t, gate.ReasonNotAuthorized, result.Reason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

// doorEngine answers like the validation engine for a single ticket. dropAfter
// lists attempts that are applied but whose response never reaches the gate;
// failBefore lists attempts that fail before reaching storage.
type doorEngine struct {
	mu         sync.Mutex
	used       bool
	scanID     uuid.UUID
	count      int
	attempts   int
	dropAfter  map[int]bool
	failBefore map[int]bool
	seen       []uuid.UUID
}

func (e *doorEngine) Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts++
	e.seen = append(e.seen, req.ScanID)

	if e.failBefore[e.attempts] {
		return nil, fmt.Errorf("%w: connection reset", gate.ErrUnavailable)
	}

	outcome := model.OutcomeAccepted
	switch {
	case !e.used:
		e.used, e.scanID = true, req.ScanID
		e.count++
	case e.scanID == req.ScanID:
	default:
		outcome = model.OutcomeAlreadyUsed
		e.count++
	}

	if e.dropAfter[e.attempts] {
		return nil, fmt.Errorf("%w: read timeout", gate.ErrUnavailable)
	}
	return &model.ValidationResult{
		Outcome: outcome,
		Ticket:  &model.TicketResponse{Status: model.TicketStatusUsed, ValidationCount: e.count},
	}, nil
}

func TestScan_RetryAfterTransientFailure(t *testing.T) {
	codec := newCodec(t)

	t.Run("Admitted by our own lost attempt", func(t *testing.T) {
		engine := &doorEngine{dropAfter: map[int]bool{1: true}}
		client := gate.NewClient(codec, engine, fastConfig())

		result := client.Scan(context.Background(), codec.Encode(uuid.New()))

		assert.Equal(t, gate.ReasonAccepted, result.Reason)
		assert.True(t, result.Admit())
		assert.Equal(t, 1, engine.count)
	})

	t.Run("Copy replayed at the same gate stays red", func(t *testing.T) {
		// the original was admitted here half a minute earlier by another scan
		engine := &doorEngine{used: true, scanID: uuid.New(), count: 1, failBefore: map[int]bool{1: true}}
		client := gate.NewClient(codec, engine, fastConfig())

		result := client.Scan(context.Background(), codec.Encode(uuid.New()))

		assert.Equal(t, gate.ReasonAlreadyUsed, result.Reason)
		assert.False(t, result.Admit())
		require.NotNil(t, result.Ticket)
		assert.Equal(t, 2, result.Ticket.ValidationCount)
	})

	t.Run("Copy replayed after our lost attempt for the original", func(t *testing.T) {
		engine := &doorEngine{dropAfter: map[int]bool{1: true}}
		client := gate.NewClient(codec, engine, fastConfig())
		payload := codec.Encode(uuid.New())

		original := client.Scan(context.Background(), payload)
		replay := client.Scan(context.Background(), payload)

		assert.Equal(t, gate.ReasonAccepted, original.Reason)
		assert.Equal(t, gate.ReasonAlreadyUsed, replay.Reason)
	})
}

func TestScan_ScanIDIsStableAcrossAttempts(t *testing.T) {
	codec := newCodec(t)
	engine := &doorEngine{failBefore: map[int]bool{1: true, 2: true, 4: true}}
	client := gate.NewClient(codec, engine, fastConfig())

	client.Scan(context.Background(), codec.Encode(uuid.New()))
	client.Scan(context.Background(), codec.Encode(uuid.New()))

	require.Len(t, engine.seen, 5)
	first, second := engine.seen[0], engine.seen[3]
	assert.NotEqual(t, uuid.Nil, first)
	assert.Equal(t, []uuid.UUID{first, first, first}, engine.seen[:3])
	assert.Equal(t, []uuid.UUID{second, second}, engine.seen[3:])
	assert.NotEqual(t, first, second)
}

func TestScan_FirstAttemptAlreadyUsedStaysRed(t *testing.T) {
	codec := newCodec(t)
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		now := time.Now()
		by := req.GateID
		return &model.ValidationResult{
			Outcome: model.OutcomeAlreadyUsed,
			Ticket:  &model.TicketResponse{ValidationCount: 1, ValidatedAt: &now, ValidatedBy: &by},
		}, nil
	}), fastConfig())

	result := client.Scan(context.Background(), codec.Encode(uuid.New()))
	assert.Equal(t, gate.ReasonAlreadyUsed, result.Reason)
}

func TestScan_UnknownOutcome(t *testing.T) {
	codec := newCodec(t)
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		return &model.ValidationResult{Outcome: "teleported"}, nil
	}), fastConfig())

	result := client.Scan(context.Background(), codec.Encode(uuid.New()))
	assert.Equal(t, gate.ReasonUnknown, result.Reason)
	assert.False(t, result.Admit())
}

func TestScan_CancelledDuringBackoff(t *testing.T) {
	codec := newCodec(t)
	cfg := fastConfig()
	cfg.RetryBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		cancel()
		return nil, gate.ErrUnavailable
	}), cfg)

	result := client.Scan(ctx, codec.Encode(uuid.New()))
	assert.Equal(t, gate.ReasonUnavailable, result.Reason)
}

func TestScan_BoundEventIsSent(t *testing.T) {
	codec := newCodec(t)
	eventID := uuid.New()
	cfg := fastConfig()
	cfg.EventID = &eventID

	var got model.ValidateRequest
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		got = req
		return &model.ValidationResult{Outcome: model.OutcomeWrongEvent}, nil
	}), cfg)

	result := client.Scan(context.Background(), codec.Encode(uuid.New()))
	assert.Equal(t, gate.ReasonWrongEvent, result.Reason)
	require.NotNil(t, got.EventID)
	assert.Equal(t, eventID, *got.EventID)
	assert.True(t, got.ScanTime.IsZero())
}

func TestClient_RecentIsNewestFirst(t *testing.T) {
	codec := newCodec(t)
	cfg := fastConfig()
	cfg.HistorySize = 2
	client := gate.NewClient(codec, validatorFunc(func(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
		return nil, errors.New("should not be called")
	}), cfg)

	client.Scan(context.Background(), "first")
	client.Scan(context.Background(), "second")
	forged, err := qrcode.NewCodec("other")
	require.NoError(t, err)
	client.Scan(context.Background(), forged.Encode(uuid.New()))

	recent := client.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, gate.ReasonForged, recent[0].Reason)
	assert.Equal(t, gate.ReasonUnreadable, recent[1].Reason)
}
