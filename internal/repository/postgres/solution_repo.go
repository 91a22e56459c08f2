package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
)

// SolutionRepo реализует repository.SolutionRepository
type SolutionRepo struct {
	db *gorm.DB
}

// NewSolutionRepo создает новый репозиторий решений
func NewSolutionRepo(db *gorm.DB) *SolutionRepo {
	return &SolutionRepo{db: db}
}

// GetByUserAndPuzzle возвращает решение пользователя для головоломки
func (r *SolutionRepo) GetByUserAndPuzzle(ctx context.Context, userID, puzzleID uint) (*entity.Solution, error) {
	var solution entity.Solution
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND puzzle_id = ?", userID, puzzleID).
		First(&solution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &solution, nil
}

// InsertIfAbsent вставляет решение. Проверка "уже решал" выполняется уникальным индексом
// idx_solutions_user_puzzle: из двух одновременных вставок проходит только одна,
// вторая получает 23505 и превращается в ErrConflict.
func (r *SolutionRepo) InsertIfAbsent(ctx context.Context, solution *entity.Solution) error {
	err := r.db.WithContext(ctx).Create(solution).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		log.Printf("[SolutionRepo] Повторная отправка: user=%d puzzle=%d отклонена уникальным индексом", solution.UserID, solution.PuzzleID)
		return fmt.Errorf("%w: solution already submitted", apperrors.ErrConflict)
	}
	return err
}

// CountByPuzzle возвращает количество решений для головоломки
func (r *SolutionRepo) CountByPuzzle(ctx context.Context, puzzleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Solution{}).
		Where("puzzle_id = ?", puzzleID).
		Count(&count).Error
	return count, err
}

// ListByPuzzle возвращает все решения головоломки в порядке отправки
func (r *SolutionRepo) ListByPuzzle(ctx context.Context, puzzleID uint) ([]entity.Solution, error) {
	var solutions []entity.Solution
	err := r.db.WithContext(ctx).
		Where("puzzle_id = ?", puzzleID).
		Order("created_at ASC, id ASC").
		Find(&solutions).Error
	// Пустой слайс - валидный результат
	return solutions, err
}
