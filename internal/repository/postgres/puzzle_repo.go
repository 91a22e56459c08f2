package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
)

// PuzzleRepo реализует repository.PuzzleRepository
type PuzzleRepo struct {
	db *gorm.DB
}

// NewPuzzleRepo создает новый репозиторий головоломок
func NewPuzzleRepo(db *gorm.DB) *PuzzleRepo {
	return &PuzzleRepo{db: db}
}

// Create создает новую головоломку.
// Уникальный индекс idx_puzzles_publish_date превращается в ErrConflict.
func (r *PuzzleRepo) Create(ctx context.Context, puzzle *entity.Puzzle) error {
	if err := r.db.WithContext(ctx).Create(puzzle).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: puzzle for %s already exists", apperrors.ErrConflict, puzzle.PublishDate.Format("2006-01-02"))
		}
		return err
	}
	return nil
}

// GetByID возвращает головоломку по ID
func (r *PuzzleRepo) GetByID(ctx context.Context, id uint) (*entity.Puzzle, error) {
	var puzzle entity.Puzzle
	err := r.db.WithContext(ctx).First(&puzzle, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &puzzle, nil
}

// GetByPublishDate возвращает головоломку на указанный день
func (r *PuzzleRepo) GetByPublishDate(ctx context.Context, day time.Time) (*entity.Puzzle, error) {
	var puzzle entity.Puzzle
	err := r.db.WithContext(ctx).Where("publish_date = ?", entity.TruncateToUTCDay(day)).First(&puzzle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &puzzle, nil
}

// FindActiveInRange возвращает активные головоломки в полуоткрытом диапазоне [start, end)
func (r *PuzzleRepo) FindActiveInRange(ctx context.Context, start, end time.Time) ([]entity.Puzzle, error) {
	var puzzles []entity.Puzzle
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND publish_date >= ? AND publish_date < ?", true, start, end).
		Order("created_at DESC, id DESC").
		Find(&puzzles).Error
	if err != nil {
		return nil, err
	}
	return puzzles, nil
}

// Update точечно обновляет поля головоломки без full Save
func (r *PuzzleRepo) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entity.Puzzle{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: another puzzle already uses this publish date", apperrors.ErrConflict)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет головоломку. Внешний ключ solutions.puzzle_id объявлен с ON DELETE RESTRICT,
// поэтому база не даст удалить головоломку с решениями, даже если сервис пропустит проверку.
func (r *PuzzleRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Puzzle{}, id)
	if result.Error != nil {
		return translateDeleteError(id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListWithSolutionCount возвращает головоломки с числом решений, отсортированные по дате публикации
func (r *PuzzleRepo) ListWithSolutionCount(ctx context.Context, limit, offset int) ([]repository.PuzzleWithCount, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Puzzle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []repository.PuzzleWithCount
	err := r.db.WithContext(ctx).
		Model(&entity.Puzzle{}).
		Select("puzzles.*, (SELECT COUNT(*) FROM solutions s WHERE s.puzzle_id = puzzles.id) AS solution_count").
		Order("publish_date DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// translateDeleteError превращает отказ внешнего ключа в ErrConflict:
// решение могло появиться между проверкой в сервисе и удалением
func translateDeleteError(id uint, err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: puzzle %d has solutions and cannot be deleted, deactivate it instead", apperrors.ErrConflict, id)
	}
	return err
}
