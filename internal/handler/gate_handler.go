package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"event-ticket-gate/internal/auth"
	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GateHandler struct {
	service service.ValidationService
	codec   *qrcode.Codec
}

func NewGateHandler(service service.ValidationService, codec *qrcode.Codec) *GateHandler {
	return &GateHandler{service: service, codec: codec}
}

func (h *GateHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("gate/validate", auth.RequireRoles(model.RoleGate, model.RoleOrganizer, model.RoleAdmin), h.Validate)
}

// ValidateTicketRequest carries either the scanned payload or an already decoded ticket id.
// ScanID is repeated unchanged when a gate retries the same scan.
type ValidateTicketRequest struct {
	Payload  string     `json:"payload" binding:"required_without=TicketID,omitempty,ticket_payload"`
	TicketID string     `json:"ticket_id" binding:"required_without=Payload,omitempty,uuid"`
	ScanTime *time.Time `json:"scan_time"`
	EventID  string     `json:"event_id" binding:"omitempty,uuid"`
	GateID   string     `json:"gate_id" binding:"omitempty,max=64"`
	ScanID   string     `json:"scan_id" binding:"omitempty,uuid"`
}

// Validate always answers 200 with an outcome for business results; decode failures are 4xx.
func (h *GateHandler) Validate(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	var req ValidateTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	var ticketID uuid.UUID
	var err error
	if req.Payload != "" {
		ticketID, err = h.codec.Decode(req.Payload)
		if err != nil {
			handleError(c, err, "Validate")
			return
		}
	} else {
		ticketID = uuid.MustParse(req.TicketID)
	}

	vreq := model.ValidateRequest{
		TicketID: ticketID,
		GateID:   gateIdentity(caller, req.GateID),
		Caller:   caller,
	}
	if req.ScanID != "" {
		vreq.ScanID = uuid.MustParse(req.ScanID)
	}
	if req.ScanTime != nil {
		vreq.ScanTime = req.ScanTime.UTC()
	}
	if req.EventID != "" {
		eventID := uuid.MustParse(req.EventID)
		vreq.EventID = &eventID
	}

	result, err := h.service.Validate(c, vreq)
	if err != nil {
		handleError(c, err, "Validate")
		return
	}
	c.JSON(http.StatusOK, result)
}

// gateIdentity is recorded as validated_by. It always starts with the
// authenticated account; the client label only names the lane. Admins may
// record any label, which back-office re-scans use.
func gateIdentity(caller model.Caller, label string) string {
	label = strings.TrimSpace(label)
	if caller.IsAdmin() && label != "" {
		return label
	}

	account := fmt.Sprintf("user-%d", caller.UserID)
	if label == "" {
		return account
	}
	return account + "/" + label
}
