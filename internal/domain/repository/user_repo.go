package repository

import (
	"context"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetEmailsByIDs нужен для экспорта решений
	GetEmailsByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
}
