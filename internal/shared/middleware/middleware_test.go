package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketing/internal/shared/config"
	"ticketing/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func accessClaims(userID uuid.UUID, role users.Role) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}

	engine := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuthWithConfig(cfg)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, actor.UserID.String()+"|"+actor.Role.String())
	})
	engine.GET("/protected", chain...)
	return engine
}

func get(engine *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_AcceptsAccessToken(t *testing.T) {
	userID := uuid.New()
	w := get(newEngine(), "Bearer "+sign(t, accessClaims(userID, users.RoleCustomer), secret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String()+"|customer", w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	userID := uuid.New()
	refresh := accessClaims(userID, users.RoleCustomer)
	refresh["type"] = "refresh"
	expired := accessClaims(userID, users.RoleCustomer)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	badRole := accessClaims(userID, "superuser")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token " + sign(t, accessClaims(userID, users.RoleCustomer), secret)},
		{"wrong secret", "Bearer " + sign(t, accessClaims(userID, users.RoleCustomer), "other")},
		{"refresh token", "Bearer " + sign(t, refresh, secret)},
		{"expired", "Bearer " + sign(t, expired, secret)},
		{"unknown role", "Bearer " + sign(t, badRole, secret)},
		{"garbage", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(newEngine(), tt.header).Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	engine := newEngine(RequireRoles(users.RoleVenueManager, users.RoleAdmin))

	customer := get(engine, "Bearer "+sign(t, accessClaims(uuid.New(), users.RoleCustomer), secret))
	assert.Equal(t, http.StatusForbidden, customer.Code)

	manager := get(engine, "Bearer "+sign(t, accessClaims(uuid.New(), users.RoleVenueManager), secret))
	assert.Equal(t, http.StatusOK, manager.Code)

	admin := get(newEngine(RequireAdmin()), "Bearer "+sign(t, accessClaims(uuid.New(), users.RoleAdmin), secret))
	assert.Equal(t, http.StatusOK, admin.Code)
}
