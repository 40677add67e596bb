package gate

import (
	"context"
	"errors"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/qrcode"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	GateID string
	// EventID binds the scanner to one event; tickets for others render wrong_event.
	EventID      *uuid.UUID
	Retries      int
	RetryBackoff time.Duration
	HistorySize  int
}

// Client is the scanner side: it checks payload integrity offline and asks the
// validation engine for every admission decision.
type Client struct {
	codec     *qrcode.Codec
	validator Validator
	cfg       Config
	history   *History
	clock     func() time.Time
}

func NewClient(codec *qrcode.Codec, validator Validator, cfg Config) *Client {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &Client{
		codec:     codec,
		validator: validator,
		cfg:       cfg,
		history:   NewHistory(cfg.HistorySize),
		clock:     time.Now,
	}
}

// Scan decodes payload and renders the engine's answer. It never admits
// without a successful round-trip. Every attempt of one scan carries the same
// scan id, so a retry after a lost response is answered accepted by the
// engine only if that scan is the one that admitted the ticket.
func (c *Client) Scan(ctx context.Context, payload string) Result {
	scannedAt := c.clock()

	ticketID, err := c.codec.Decode(payload)
	if err != nil {
		reason := ReasonUnreadable
		if errors.Is(err, apperrors.ErrInvalidSignature) {
			reason = ReasonForged
		}
		return c.record(newResult(reason, uuid.Nil, scannedAt), err)
	}

	req := model.ValidateRequest{
		TicketID: ticketID,
		GateID:   c.cfg.GateID,
		EventID:  c.cfg.EventID,
		ScanID:   uuid.New(),
	}

	var res *model.ValidationResult
	attempts := 0
	for {
		attempts++
		res, err = c.validator.Validate(ctx, req)
		if err == nil || !errors.Is(err, ErrUnavailable) || attempts > c.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return c.record(newResult(ReasonUnavailable, ticketID, scannedAt), ctx.Err())
		case <-time.After(c.cfg.RetryBackoff):
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrNotAuthorized):
		return c.record(newResult(ReasonNotAuthorized, ticketID, scannedAt), err)
	case errors.Is(err, ErrUnavailable):
		return c.record(newResult(ReasonUnavailable, ticketID, scannedAt), err)
	default:
		return c.record(newResult(ReasonUnknown, ticketID, scannedAt), err)
	}

	result := newResult(reasonFor(res.Outcome), ticketID, scannedAt)
	result.Ticket = res.Ticket
	return c.record(result, nil)
}

// Recent returns past results for operator review, newest first.
func (c *Client) Recent() []Result {
	return c.history.Recent()
}

func (c *Client) record(result Result, err error) Result {
	c.history.Add(result)

	fields := []zap.Field{
		zap.String("gate_id", c.cfg.GateID),
		zap.String("ticket_id", result.TicketID.String()),
		zap.String("reason", string(result.Reason)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		logger.WithComponent("gate").Warn("scan rejected", fields...)
	} else {
		logger.WithComponent("gate").Info("scan", fields...)
	}
	return result
}
