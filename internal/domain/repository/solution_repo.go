package repository

import (
	"context"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

// SolutionRepository определяет методы для работы с решениями
type SolutionRepository interface {
	// GetByUserAndPuzzle возвращает решение пользователя или apperrors.ErrNotFound
	GetByUserAndPuzzle(ctx context.Context, userID, puzzleID uint) (*entity.Solution, error)
	// InsertIfAbsent вставляет решение. Если для пары (user, puzzle) решение уже есть,
	// возвращает ошибку, оборачивающую apperrors.ErrConflict. Проверку выполняет
	// уникальный индекс хранилища, а не код приложения.
	InsertIfAbsent(ctx context.Context, solution *entity.Solution) error
	CountByPuzzle(ctx context.Context, puzzleID uint) (int64, error)
	ListByPuzzle(ctx context.Context, puzzleID uint) ([]entity.Solution, error)
}
