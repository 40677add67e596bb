package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"event-ticket-gate/internal/model"
	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

// Claims is the JWT body issued by the identity service.
type Claims struct {
	UserID int        `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &TokenManager{secret: []byte(secret)}, nil
}

func (m *TokenManager) Issue(caller model.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: caller.UserID,
		Role:   caller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse returns ErrUnauthorized for anything but a well-signed, unexpired token with a known role.
func (m *TokenManager) Parse(token string) (model.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Caller{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	if claims.UserID <= 0 || !claims.Role.IsValid() {
		return model.Caller{}, apperrors.ErrUnauthorized
	}
	return model.Caller{UserID: claims.UserID, Role: claims.Role}, nil
}

// Middleware rejects requests without a valid bearer token and stores the caller on the context.
func Middleware(m *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		caller, err := m.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireRoles must run after Middleware.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		for _, r := range roles {
			if caller.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

func CallerFromContext(c *gin.Context) (model.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return model.Caller{}, false
	}
	caller, ok := v.(model.Caller)
	return caller, ok
}

// WithCaller stores caller on the context; handler tests use it to skip token parsing.
func WithCaller(caller model.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(callerKey, caller)
		c.Next()
	}
}
