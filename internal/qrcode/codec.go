package qrcode

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// PayloadVersion prefixes every payload so the format can evolve.
const PayloadVersion = "TKT1"

// PayloadLength is the fixed length of an encoded payload: "TKT1." + 22 + "." + 22.
const PayloadLength = len(PayloadVersion) + 1 + 22 + 1 + 22

const tagSize = 16

var b64 = base64.RawURLEncoding

// Codec turns ticket ids into signed, printable payloads and back.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	signKey   [32]byte
	verifyKey [][32]byte
}

// NewCodec builds a codec signing with secret. previous secrets are accepted
// when decoding so payloads issued before a key rotation keep scanning.
func NewCodec(secret string, previous ...string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("qr secret must not be empty")
	}
	c := &Codec{signKey: deriveKey(secret)}
	c.verifyKey = append(c.verifyKey, c.signKey)
	for _, p := range previous {
		if p == "" {
			continue
		}
		c.verifyKey = append(c.verifyKey, deriveKey(p))
	}
	return c, nil
}

func deriveKey(secret string) [32]byte {
	return blake2b.Sum256([]byte(secret))
}

// Encode returns the payload for ticketID. Same id, same payload.
func (c *Codec) Encode(ticketID uuid.UUID) string {
	tag := sign(c.signKey, ticketID)
	return PayloadVersion + "." + b64.EncodeToString(ticketID[:]) + "." + b64.EncodeToString(tag)
}

// Decode recovers the ticket id. It returns ErrMalformedPayload when the
// payload cannot be parsed and ErrInvalidSignature when the tag does not
// match, whether or not the ticket exists.
func (c *Codec) Decode(payload string) (uuid.UUID, error) {
	payload = strings.TrimSpace(payload)
	if len(payload) != PayloadLength {
		return uuid.Nil, fmt.Errorf("%w: unexpected length %d", apperrors.ErrMalformedPayload, len(payload))
	}

	parts := strings.Split(payload, ".")
	if len(parts) != 3 || parts[0] != PayloadVersion {
		return uuid.Nil, fmt.Errorf("%w: unknown format", apperrors.ErrMalformedPayload)
	}

	idBytes, err := b64.DecodeString(parts[1])
	if err != nil || len(idBytes) != 16 {
		return uuid.Nil, fmt.Errorf("%w: bad ticket id", apperrors.ErrMalformedPayload)
	}
	tag, err := b64.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return uuid.Nil, fmt.Errorf("%w: bad tag", apperrors.ErrMalformedPayload)
	}

	ticketID, err := uuid.FromBytes(idBytes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedPayload, err)
	}

	for _, key := range c.verifyKey {
		if subtle.ConstantTimeCompare(tag, sign(key, ticketID)) == 1 {
			return ticketID, nil
		}
	}
	return uuid.Nil, apperrors.ErrInvalidSignature
}

func sign(key [32]byte, ticketID uuid.UUID) []byte {
	// key length is fixed at 32 bytes, New256 cannot fail
	h, _ := blake2b.New256(key[:])
	h.Write([]byte(PayloadVersion))
	h.Write(ticketID[:])
	return h.Sum(nil)[:tagSize]
}
