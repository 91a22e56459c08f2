package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/handler/dto"
	"github.com/yourusername/cryptic-api/internal/middleware"
	"github.com/yourusername/cryptic-api/internal/service"
)

// Authenticator: операции с учетными записями
type Authenticator interface {
	Register(ctx context.Context, email, password, name string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Me(ctx context.Context, userID uint) (*entity.User, error)
}

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService Authenticator
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register регистрирует нового пользователя и сразу выдает токен
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}
	log.Printf("[AuthHandler] Пользователь ID=%d успешно зарегистрирован", user.ID)

	login, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTokenResponse(login))
}

// Login выдает токен доступа
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	login, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenResponse(login))
}

// Me возвращает профиль текущего пользователя
// GET /api/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}
