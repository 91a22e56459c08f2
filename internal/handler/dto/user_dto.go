package dto

import (
	"time"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/service"
)

// RegisterRequest: тело POST /api/auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"` // bcrypt ограничен 72 байтами
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest: тело POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse: публичный профиль пользователя
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenResponse: выданный токен доступа
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"` // секунды
	User        UserResponse `json:"user"`
}

// NewUserResponse преобразует пользователя в DTO
func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// NewTokenResponse преобразует результат входа в DTO
func NewTokenResponse(r *service.LoginResult) TokenResponse {
	return TokenResponse{
		AccessToken: r.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(r.ExpiresIn.Seconds()),
		User:        NewUserResponse(r.User),
	}
}
