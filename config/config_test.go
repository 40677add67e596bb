package config_test

import (
	"testing"
	"time"

	"event-ticket-gate/config"
	"event-ticket-gate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_SecretsHaveNoDefault(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("QR_SECRET", "")

	cfg := config.LoadConfig()

	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Ticketing.QRSecret)

	_, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	assert.Error(t, err)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-from-env")
	t.Setenv("QR_SECRET", "qr-from-env")
	t.Setenv("QR_PREVIOUS_SECRETS", " old-1 , ,old-2")
	t.Setenv("CHECK_IN_LEAD", "90m")
	t.Setenv("AUDIT_QUEUE", "memory")

	cfg := config.LoadConfig()

	assert.Equal(t, "jwt-from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"old-1", "old-2"}, cfg.Ticketing.QRPreviousSecrets)
	assert.Equal(t, 90*time.Minute, cfg.Ticketing.CheckInLead)
	assert.False(t, cfg.Audit.UseRedisStream)

	_, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	require.NoError(t, err)
}
