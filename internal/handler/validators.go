package handler

import (
	"regexp"
	"strings"

	"event-ticket-gate/internal/qrcode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var ticketTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// RegisterValidators adds the ticket_type and ticket_payload tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("ticket_type", func(fl validator.FieldLevel) bool {
		return ticketTypePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	// shape only; the signature is checked by the codec
	return v.RegisterValidation("ticket_payload", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return len(s) == qrcode.PayloadLength && strings.HasPrefix(s, qrcode.PayloadVersion+".")
	})
}
