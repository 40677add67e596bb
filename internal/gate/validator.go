package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"event-ticket-gate/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrUnavailable covers transport failures and 5xx answers; the scan may be retried.
	ErrUnavailable = errors.New("validation service unavailable")
	// ErrNotAuthorized means the server refused this scanner's credentials.
	ErrNotAuthorized = errors.New("scanner not authorized")
)

// Validator submits a decoded scan to the validation engine.
type Validator interface {
	Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error)
}

// HTTPValidator talks to POST /api/v1/gate/validate.
type HTTPValidator struct {
	endpoint string
	token    string
	hc       *http.Client
}

func NewHTTPValidator(baseURL, token string, timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/v1/gate/validate",
		token:    token,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type validateBody struct {
	TicketID uuid.UUID  `json:"ticket_id"`
	ScanTime *time.Time `json:"scan_time,omitempty"`
	GateID   string     `json:"gate_id,omitempty"`
	EventID  *uuid.UUID `json:"event_id,omitempty"`
	ScanID   *uuid.UUID `json:"scan_id,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (v *HTTPValidator) Validate(ctx context.Context, req model.ValidateRequest) (*model.ValidationResult, error) {
	body := validateBody{
		TicketID: req.TicketID,
		GateID:   req.GateID,
		EventID:  req.EventID,
	}
	if !req.ScanTime.IsZero() {
		body.ScanTime = &req.ScanTime
	}
	if req.ScanID != uuid.Nil {
		body.ScanID = &req.ScanID
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+v.token)

	resp, err := v.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result model.ValidationResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode validation result: %w", err)
		}
		return &result, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrNotAuthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &eb) != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(data))
	}
	return nil, fmt.Errorf("validation rejected with status %d: %s", resp.StatusCode, eb.Error)
}
