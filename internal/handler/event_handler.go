package handler

import (
	"net/http"

	"event-ticket-gate/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("events/:uuid", h.GetByEventID)
	router.POST("events/:uuid/open", h.OpenForSale)
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	event, err := h.service.GetByEventID(c, eventID)
	if err != nil {
		handleError(c, err, "GetByEventID")
		return
	}
	c.JSON(http.StatusOK, event)
}

// OpenForSale warms the capacity inventory so issuance can start.
func (h *EventHandler) OpenForSale(c *gin.Context) {
	caller, ok := RequireCaller(c)
	if !ok {
		return
	}
	eventID, ok := ParseUUIDParam(c, "uuid")
	if !ok {
		return
	}
	event, err := h.service.OpenForSale(c, eventID, caller)
	if err != nil {
		handleError(c, err, "OpenForSale")
		return
	}
	c.JSON(http.StatusOK, event)
}
