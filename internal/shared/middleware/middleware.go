package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ticketing/internal/shared/config"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/users"
	"ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid access token")

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// JWTAuthWithConfig validates the bearer token and stores the caller identity
// and role on the gin context.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		actor, err := parseAccessToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, actor.UserID)
		c.Set(ContextUserRole, actor.Role)
		c.Next()
	}
}

func parseAccessToken(tokenString, secret string) (users.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return users.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return users.Actor{}, errInvalidToken
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return users.Actor{}, errInvalidToken
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return users.Actor{}, errInvalidToken
	}
	role, _ := claims["role"].(string)
	if !users.IsValidRole(role) {
		return users.Actor{}, errInvalidToken
	}

	return users.Actor{UserID: userID, Role: users.Role(role)}, nil
}

// GetActor returns the authenticated caller stored by JWTAuth
func GetActor(c *gin.Context) (users.Actor, bool) {
	rawID, ok := c.Get(ContextUserID)
	if !ok {
		return users.Actor{}, false
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok {
		return users.Actor{}, false
	}
	rawRole, _ := c.Get(ContextUserRole)
	role, _ := rawRole.(users.Role)
	return users.Actor{UserID: userID, Role: role}, true
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(users.RoleAdmin)
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		for _, role := range requiredRoles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}
