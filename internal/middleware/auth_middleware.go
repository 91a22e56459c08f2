package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/pkg/auth"
)

// Ключи контекста gin, которые выставляет middleware
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

var errMissingToken = errors.New("authorization header is required")

// bearerToken извлекает токен из заголовка Authorization: Bearer {token}
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

func setClaims(c *gin.Context, claims *auth.JWTCustomClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
}

// RequireAuth проверяет, аутентифицирован ли пользователь
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			errorType := "token_format"
			if errors.Is(err, errMissingToken) {
				errorType = "token_missing"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": errorType})
			return
		}

		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			errorType := "token_invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				errorType = "token_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": errorType})
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth распознает пользователя, если токен передан, но не требует его.
// Невалидный токен игнорируется: запрос обрабатывается как анонимный.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err == nil {
			if claims, err := m.jwtService.ParseToken(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// AdminOnly проверяет роль администратора. Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if c.GetString(ContextRole) != entity.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}

		c.Next()
	}
}

// UserID возвращает ID аутентифицированного пользователя из контекста
func UserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := raw.(uint)
	return id, ok && id != 0
}
