package repository

import (
	"context"
	"time"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
)

// PuzzleWithCount: головоломка вместе с количеством отправленных решений (для админки)
type PuzzleWithCount struct {
	entity.Puzzle
	SolutionCount int64 `gorm:"column:solution_count"`
}

// PuzzleRepository определяет методы для работы с головоломками
type PuzzleRepository interface {
	Create(ctx context.Context, puzzle *entity.Puzzle) error
	GetByID(ctx context.Context, id uint) (*entity.Puzzle, error)
	// GetByPublishDate ищет головоломку, опубликованную ровно в указанный день (UTC полночь)
	GetByPublishDate(ctx context.Context, day time.Time) (*entity.Puzzle, error)
	// FindActiveInRange возвращает активные головоломки с publish_date в [start, end)
	FindActiveInRange(ctx context.Context, start, end time.Time) ([]entity.Puzzle, error)
	// Update точечно обновляет переданные поля
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	// ListWithSolutionCount возвращает страницу головоломок (publish_date DESC) и общее количество
	ListWithSolutionCount(ctx context.Context, limit, offset int) ([]PuzzleWithCount, int64, error)
}
