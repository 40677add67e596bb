package handler

import (
	"net/http"
	"strconv"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/internal/qrcode"
	"event-ticket-gate/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("events/:uuid/tickets", h.Issue)
	router.GET("tickets/:uuid", h.GetByTicketID)
	router.GET("tickets/:uuid/qrcode", h.QRCode)
	router.POST("tickets/:uuid/cancel", h.Cancel)
	router.GET("users/:id/tickets", h.ListByUser)
}

// IssueTicketRequest is the purchase body; UserID defaults to the caller.
type IssueTicketRequest struct {
	TicketType  string `json:"ticket_type" binding:"required,ticket_type"`
	UserID      int    `json:"user_id" binding:"omitempty,gt=0"`
	HolderName  string `json:"holder_name" binding:"omitempty,max=200"`
	HolderEmail string `json:"holder_email" binding:"omitempty,email"`
}

type QRCodeQuery struct {
	Size int `form:"size" binding:"omitempty,min=64,max=1024"`
}

func (h *TicketHandler) Issue(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	eventID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	var req IssueTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = caller.UserID
	}
	if !caller.CanActFor(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	ticket, err := h.service.Issue(c, model.IssueTicketRequest{
		EventID:    eventID,
		UserID:     userID,
		TicketType: req.TicketType,
		Holder:     model.TicketHolder{Name: req.HolderName, Email: req.HolderEmail},
	})
	if err != nil {
		handleError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusCreated, ticket.ToResponse())
}

func (h *TicketHandler) GetByTicketID(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	ticketID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	ticket, err := h.service.GetByTicketID(c, ticketID, caller)
	if err != nil {
		handleError(c, err, "GetByTicketID")
		return
	}
	c.JSON(http.StatusOK, ticket.ToResponse())
}

// QRCode renders the ticket's payload as a PNG for the holder's screen.
func (h *TicketHandler) QRCode(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	ticketID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	var query QRCodeQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}
	if query.Size == 0 {
		query.Size = qrcode.DefaultImageSize
	}

	ticket, err := h.service.GetByTicketID(c, ticketID, caller)
	if err != nil {
		handleError(c, err, "QRCode")
		return
	}

	png, err := qrcode.PNG(ticket.QRPayload, query.Size)
	if err != nil {
		handleError(c, err, "QRCode")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	ticketID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	ticket, err := h.service.Cancel(c, ticketID, caller)
	if err != nil {
		handleError(c, err, "Cancel")
		return
	}
	c.JSON(http.StatusOK, ticket.ToResponse())
}

func (h *TicketHandler) ListByUser(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if !caller.CanActFor(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	tickets, err := h.service.ListByUser(c, userID)
	if err != nil {
		handleError(c, err, "ListByUser")
		return
	}
	resp := make([]model.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, t.ToResponse())
	}
	c.JSON(http.StatusOK, resp)
}
