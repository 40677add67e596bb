package gate

import (
	"fmt"
	"strings"
	"time"

	"event-ticket-gate/internal/model"

	"github.com/google/uuid"
)

// Verdict is what the operator sees first. Only green admits.
type Verdict string

const (
	VerdictGreen Verdict = "green"
	VerdictRed   Verdict = "red"
)

// Reason distinguishes every rejection so the operator knows what to do next.
type Reason string

const (
	ReasonAccepted    Reason = "accepted"
	ReasonAlreadyUsed Reason = "already_used"
	ReasonExpired     Reason = "expired"
	ReasonCancelled   Reason = "cancelled"
	ReasonNotFound    Reason = "not_found"
	ReasonNotYetOpen  Reason = "not_yet_open"
	ReasonWrongEvent  Reason = "wrong_event"

	// decided locally, no network call
	ReasonUnreadable Reason = "unreadable"
	ReasonForged     Reason = "forged"

	ReasonUnavailable   Reason = "unavailable"
	ReasonNotAuthorized Reason = "not_authorized"
	ReasonUnknown       Reason = "unknown"
)

type prompt struct {
	message string
	action  string
}

var prompts = map[Reason]prompt{
	ReasonAccepted:      {"Valid ticket", "Admit"},
	ReasonAlreadyUsed:   {"Ticket already used", "Do not admit. Refer holder to the box office"},
	ReasonExpired:       {"Ticket expired", "Do not admit"},
	ReasonCancelled:     {"Ticket cancelled", "Do not admit. Refer holder to the organizer"},
	ReasonNotFound:      {"Unknown ticket", "Do not admit. Call a supervisor"},
	ReasonNotYetOpen:    {"Check-in not open yet", "Ask holder to come back when doors open"},
	ReasonWrongEvent:    {"Ticket is for another event", "Direct holder to the right entrance"},
	ReasonUnreadable:    {"Invalid code: unreadable", "Rescan. If it fails again, send holder to the box office"},
	ReasonForged:        {"Invalid code: signature mismatch", "Do not admit. Call security"},
	ReasonUnavailable:   {"No connection", "Do not admit. Retry"},
	ReasonNotAuthorized: {"Scanner not authorized", "Do not admit. Call a supervisor"},
	ReasonUnknown:       {"Unrecognized server response", "Do not admit. Call a supervisor"},
}

// Result is one rendered scan.
type Result struct {
	Verdict   Verdict               `json:"verdict"`
	Reason    Reason                `json:"reason"`
	Message   string                `json:"message"`
	Action    string                `json:"action"`
	TicketID  uuid.UUID             `json:"ticket_id"`
	Ticket    *model.TicketResponse `json:"ticket,omitempty"`
	ScannedAt time.Time             `json:"scanned_at"`
}

func (r Result) Admit() bool {
	return r.Verdict == VerdictGreen
}

func (r Result) String() string {
	return fmt.Sprintf("%-5s %s: %s", strings.ToUpper(string(r.Verdict)), r.Message, r.Action)
}

func newResult(reason Reason, ticketID uuid.UUID, scannedAt time.Time) Result {
	p, ok := prompts[reason]
	if !ok {
		reason, p = ReasonUnknown, prompts[ReasonUnknown]
	}
	verdict := VerdictRed
	if reason == ReasonAccepted {
		verdict = VerdictGreen
	}
	return Result{
		Verdict:   verdict,
		Reason:    reason,
		Message:   p.message,
		Action:    p.action,
		TicketID:  ticketID,
		ScannedAt: scannedAt,
	}
}

// reasonFor maps a server outcome. Outcomes this build does not know render red.
func reasonFor(outcome model.ValidationOutcome) Reason {
	switch outcome {
	case model.OutcomeAccepted:
		return ReasonAccepted
	case model.OutcomeAlreadyUsed:
		return ReasonAlreadyUsed
	case model.OutcomeExpired:
		return ReasonExpired
	case model.OutcomeCancelled:
		return ReasonCancelled
	case model.OutcomeNotFound:
		return ReasonNotFound
	case model.OutcomeNotYetOpen:
		return ReasonNotYetOpen
	case model.OutcomeWrongEvent:
		return ReasonWrongEvent
	}
	return ReasonUnknown
}
