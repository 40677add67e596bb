package apperrors

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrUserNotFound   = errors.New("user not found")

	// issuance
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrInvalidEventState     = errors.New("event is not open for ticket issuance")
	ErrDuplicateActiveTicket = errors.New("holder already has an active ticket of this type")
	ErrUnknownTicketType     = errors.New("ticket type not offered by event")
	ErrInventoryNotReady     = errors.New("capacity inventory not warmed up")

	// validation
	ErrTicketStateChanged = errors.New("ticket state changed concurrently")

	// payload decoding
	ErrMalformedPayload = errors.New("malformed ticket payload")
	ErrInvalidSignature = errors.New("invalid ticket payload signature")

	// cancellation
	ErrTicketNotValid = errors.New("ticket is no longer valid")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)
