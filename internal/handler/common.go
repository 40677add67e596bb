package handler

import (
	"errors"
	"net/http"

	"event-ticket-gate/internal/auth"
	"event-ticket-gate/internal/model"
	apperrors "event-ticket-gate/pkg/app_errors"
	"event-ticket-gate/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// ParseUUIDParam writes a 400 and returns false when the path parameter is not a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// RequireCaller writes a 401 and returns false when no authenticated caller is on the context.
func RequireCaller(c *gin.Context) (model.Caller, bool) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return model.Caller{}, false
	}
	return caller, true
}

// handleError maps domain sentinels to status codes; anything else is a 500.
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		log.Info("Capacity exceeded")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket type is sold out"})
	case errors.Is(err, apperrors.ErrDuplicateActiveTicket):
		log.Info("Duplicate active ticket")
		c.JSON(http.StatusConflict, gin.H{"error": "Holder already has an active ticket of this type"})
	case errors.Is(err, apperrors.ErrInvalidEventState):
		log.Info("Event not open")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for ticket issuance"})
	case errors.Is(err, apperrors.ErrTicketNotValid):
		log.Info("Ticket not valid")
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is no longer valid"})
	case errors.Is(err, apperrors.ErrUnknownTicketType):
		log.Warn("Unknown ticket type")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Ticket type not offered by event"})
	case errors.Is(err, apperrors.ErrMalformedPayload):
		log.Warn("Malformed payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed ticket payload"})
	case errors.Is(err, apperrors.ErrInvalidSignature):
		log.Warn("Invalid payload signature")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Ticket payload signature is invalid"})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn("User not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrInventoryNotReady):
		log.Error("Inventory not ready")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ticket sales are not open yet"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
