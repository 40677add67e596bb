package qrcode_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"event-ticket-gate/internal/qrcode"
	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, secret string, previous ...string) *qrcode.Codec {
	t.Helper()
	c, err := qrcode.NewCodec(secret, previous...)
	require.NoError(t, err)
	return c
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := qrcode.NewCodec("")
	assert.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newCodec(t, "secret")

	for i := 0; i < 100; i++ {
		id := uuid.New()
		payload := c.Encode(id)

		assert.Len(t, payload, qrcode.PayloadLength)
		assert.True(t, strings.HasPrefix(payload, qrcode.PayloadVersion+"."))

		decoded, err := c.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	c := newCodec(t, "secret")
	id := uuid.New()

	assert.Equal(t, c.Encode(id), c.Encode(id))
	assert.Equal(t, c.Encode(id), newCodec(t, "secret").Encode(id))
}

func TestCodec_DistinctIDsDistinctPayloads(t *testing.T) {
	c := newCodec(t, "secret")
	seen := make(map[string]uuid.UUID)

	for i := 0; i < 1000; i++ {
		id := uuid.New()
		payload := c.Encode(id)
		_, dup := seen[payload]
		require.False(t, dup)
		seen[payload] = id
	}
}

func TestCodec_PayloadIsPrintableASCII(t *testing.T) {
	payload := newCodec(t, "secret").Encode(uuid.New())
	for _, r := range payload {
		assert.True(t, r > 0x20 && r < 0x7f, "non printable rune %q", r)
	}
}

func TestCodec_DecodeMalformed(t *testing.T) {
	c := newCodec(t, "secret")
	valid := c.Encode(uuid.New())

	cases := map[string]string{
		"garbage":       "garbage-string",
		"empty":         "",
		"wrong version": "TKT2" + valid[4:],
		"missing dot":   strings.Replace(valid, ".", "_", 1),
		"bad base64":    valid[:10] + "!" + valid[11:],
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
			assert.NotErrorIs(t, err, apperrors.ErrInvalidSignature)
		})
	}
}

func TestCodec_DecodeInvalidSignature(t *testing.T) {
	c := newCodec(t, "secret")
	forger := newCodec(t, "other-secret")

	_, err := c.Decode(forger.Encode(uuid.New()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	// swap the id of a genuine payload while keeping its tag
	genuine := c.Encode(uuid.New())
	other := c.Encode(uuid.New())
	tampered := genuine[:5] + other[5:27] + genuine[27:]
	_, err = c.Decode(tampered)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestCodec_KeyRotation(t *testing.T) {
	old := newCodec(t, "old-secret")
	rotated := newCodec(t, "new-secret", "old-secret")
	id := uuid.New()

	decoded, err := rotated.Decode(old.Encode(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	// new payloads are signed with the new key only
	_, err = old.Decode(rotated.Encode(id))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestCodec_DecodeIsIdempotent(t *testing.T) {
	c := newCodec(t, "secret")
	payload := c.Encode(uuid.New())

	first, err1 := c.Decode(payload)
	second, err2 := c.Decode(payload)
	assert.Equal(t, first, second)
	assert.Equal(t, err1, err2)

	_, err1 = c.Decode("garbage-string")
	_, err2 = c.Decode("garbage-string")
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestCodec_ConcurrentUse(t *testing.T) {
	c := newCodec(t, "secret")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uuid.New()
			decoded, err := c.Decode(c.Encode(id))
			assert.NoError(t, err)
			assert.Equal(t, id, decoded)
		}()
	}
	wg.Wait()
}

func TestPNG(t *testing.T) {
	payload := newCodec(t, "secret").Encode(uuid.New())

	png, err := qrcode.PNG(payload, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
