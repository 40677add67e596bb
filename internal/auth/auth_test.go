package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-ticket-gate/internal/auth"
	"event-ticket-gate/internal/model"
	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)

	token, err := m.Issue(model.Caller{UserID: 42, Role: model.RoleGate}, time.Minute)
	require.NoError(t, err)

	caller, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, caller.UserID)
	assert.Equal(t, model.RoleGate, caller.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)
	other, err := auth.NewTokenManager("other-secret")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		token, err := other.Issue(model.Caller{UserID: 1, Role: model.RoleAdmin}, time.Minute)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := m.Issue(model.Caller{UserID: 1, Role: model.RoleAdmin}, -time.Minute)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := m.Issue(model.Caller{UserID: 1, Role: "superuser"}, time.Minute)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := auth.Claims{UserID: 1, Role: model.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestMiddleware(t *testing.T) {
	m, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/gate", auth.Middleware(m), auth.RequireRoles(model.RoleGate, model.RoleAdmin), func(c *gin.Context) {
		caller, ok := auth.CallerFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID})
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/gate", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	gateToken, err := m.Issue(model.Caller{UserID: 5, Role: model.RoleGate}, time.Minute)
	require.NoError(t, err)
	userToken, err := m.Issue(model.Caller{UserID: 6, Role: model.RoleUser}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do("Bearer "+gateToken))
	assert.Equal(t, http.StatusForbidden, do("Bearer "+userToken))
	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer nope"))
	assert.Equal(t, http.StatusUnauthorized, do(gateToken))
}
