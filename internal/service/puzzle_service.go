package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
	"github.com/yourusername/cryptic-api/internal/service/dailypuzzle"
)

const (
	dailyCacheKeyPrefix = "puzzle:daily:"
	publishDateLayout   = "2006-01-02"

	defaultPageSize = 20
	maxPageSize     = 100
)

// DailyPuzzle: головоломка дня глазами конкретного пользователя.
// Ответ никогда не заполняется, объяснение только после верного решения.
type DailyPuzzle struct {
	Puzzle    entity.Puzzle
	HasSolved bool
	Solution  *entity.Solution
}

// PuzzlePage: страница списка головоломок для админки
type PuzzlePage struct {
	Items   []repository.PuzzleWithCount
	Total   int64
	Page    int
	PerPage int
}

// CreatePuzzleInput содержит данные для создания головоломки
type CreatePuzzleInput struct {
	Clue        string
	Answer      string
	Explanation string
	Difficulty  *int
	PublishDate string
}

// UpdatePuzzleInput содержит изменяемые поля. nil означает "не менять".
type UpdatePuzzleInput struct {
	Clue        *string
	Answer      *string
	Explanation *string
	Difficulty  *int
	PublishDate *string
	IsActive    *bool
}

// PuzzleService выдает головоломку дня и обслуживает админский CRUD
type PuzzleService struct {
	puzzleRepo   repository.PuzzleRepository
	solutionRepo repository.SolutionRepository
	cacheRepo    repository.CacheRepository // может быть nil, если Redis отключен
	policy       dailypuzzle.DatePolicy
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewPuzzleService создает новый сервис головоломок
func NewPuzzleService(
	puzzleRepo repository.PuzzleRepository,
	solutionRepo repository.SolutionRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *PuzzleService {
	return &PuzzleService{
		puzzleRepo:   puzzleRepo,
		solutionRepo: solutionRepo,
		cacheRepo:    cacheRepo,
		policy:       dailypuzzle.UTCDayRange,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

// Today возвращает головоломку дня. userID == nil для анонимного запроса.
func (s *PuzzleService) Today(ctx context.Context, userID *uint) (*DailyPuzzle, error) {
	now := s.now()

	puzzle, err := s.resolveToday(ctx, now)
	if err != nil {
		return nil, err
	}

	explanation := puzzle.Explanation
	result := &DailyPuzzle{Puzzle: *puzzle}
	result.Puzzle.Answer = ""
	result.Puzzle.Explanation = ""

	if userID == nil {
		return result, nil
	}

	solution, err := s.solutionRepo.GetByUserAndPuzzle(ctx, *userID, puzzle.ID)
	switch {
	case err == nil:
		result.HasSolved = true
		result.Solution = solution
		if solution.IsCorrect {
			result.Puzzle.Explanation = explanation
		}
	case errors.Is(err, apperrors.ErrNotFound):
		// Пользователь еще не отвечал
	default:
		return nil, fmt.Errorf("failed to load solution for user %d: %w", *userID, err)
	}

	return result, nil
}

// resolveToday ищет головоломку дня сначала в кеше, затем в базе
func (s *PuzzleService) resolveToday(ctx context.Context, now time.Time) (*entity.Puzzle, error) {
	start, end := s.policy.DayRange(now)
	key := dailyCacheKey(start)

	if s.cacheRepo != nil {
		var cached entity.Puzzle
		err := s.cacheRepo.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[PuzzleService] Ошибка чтения кеша %s, идем в БД: %v", key, err)
		}
	}

	puzzles, err := s.puzzleRepo.FindActiveInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzles for %s: %w", start.Format(publishDateLayout), err)
	}

	selected := dailypuzzle.SelectToday(puzzles, now, s.policy)
	if selected == nil {
		return nil, fmt.Errorf("%w: no puzzle available today", apperrors.ErrNotFound)
	}

	if len(puzzles) > 1 {
		candidates := dailypuzzle.Candidates(puzzles, now, s.policy)
		if len(candidates) > 1 {
			ids := make([]uint, len(candidates))
			for i, c := range candidates {
				ids[i] = c.ID
			}
			log.Printf("[PuzzleService] ВНИМАНИЕ: на %s опубликовано %d активных головоломок %v, выбрана ID=%d (политика %s)",
				start.Format(publishDateLayout), len(candidates), ids, selected.ID, s.policy)
		}
	}

	if s.cacheRepo != nil {
		// Запись не должна пережить сам день
		ttl := s.cacheTTL
		if untilEnd := end.Sub(now); untilEnd < ttl {
			ttl = untilEnd
		}
		if ttl > 0 {
			if err := s.cacheRepo.SetJSON(ctx, key, selected, ttl); err != nil {
				log.Printf("[PuzzleService] Не удалось закешировать головоломку дня %s: %v", key, err)
			}
		}
	}

	return selected, nil
}

// List возвращает страницу головоломок с количеством решений
func (s *PuzzleService) List(ctx context.Context, page, pageSize int) (*PuzzlePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.puzzleRepo.ListWithSolutionCount(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Printf("[PuzzleService] Ошибка при получении списка головоломок: %v", err)
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}

	return &PuzzlePage{Items: items, Total: total, Page: page, PerPage: pageSize}, nil
}

// Create создает новую головоломку
func (s *PuzzleService) Create(ctx context.Context, input CreatePuzzleInput) (*entity.Puzzle, error) {
	clue := strings.TrimSpace(input.Clue)
	answer := strings.TrimSpace(input.Answer)
	if clue == "" || answer == "" || strings.TrimSpace(input.PublishDate) == "" {
		return nil, fmt.Errorf("%w: clue, answer and publishDate are required", apperrors.ErrValidation)
	}

	difficulty := entity.DefaultDifficulty
	if input.Difficulty != nil {
		difficulty = *input.Difficulty
	}
	if !entity.IsValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: difficulty must be between %d and %d", apperrors.ErrValidation, entity.MinDifficulty, entity.MaxDifficulty)
	}

	publishDate, err := ParsePublishDate(input.PublishDate)
	if err != nil {
		return nil, err
	}

	if err := s.ensureDateFree(ctx, publishDate, 0); err != nil {
		return nil, err
	}

	puzzle := &entity.Puzzle{
		Clue:        clue,
		Answer:      answer,
		Explanation: strings.TrimSpace(input.Explanation),
		Difficulty:  difficulty,
		PublishDate: publishDate,
		IsActive:    true,
	}
	// Уникальный индекс по publish_date закрывает гонку между проверкой и вставкой
	if err := s.puzzleRepo.Create(ctx, puzzle); err != nil {
		return nil, fmt.Errorf("failed to create puzzle: %w", err)
	}

	log.Printf("[PuzzleService] Создана головоломка ID=%d на %s", puzzle.ID, publishDate.Format(publishDateLayout))
	s.invalidate(ctx, publishDate)
	return puzzle, nil
}

// Update частично обновляет головоломку
func (s *PuzzleService) Update(ctx context.Context, id uint, input UpdatePuzzleInput) (*entity.Puzzle, error) {
	existing, err := s.puzzleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", id, err)
	}

	updates := make(map[string]interface{})
	affectedDays := []time.Time{existing.PublishDay()}

	if input.Clue != nil {
		clue := strings.TrimSpace(*input.Clue)
		if clue == "" {
			return nil, fmt.Errorf("%w: clue cannot be empty", apperrors.ErrValidation)
		}
		updates["clue"] = clue
	}
	if input.Answer != nil {
		answer := strings.TrimSpace(*input.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: answer cannot be empty", apperrors.ErrValidation)
		}
		updates["answer"] = answer
	}
	if input.Explanation != nil {
		updates["explanation"] = strings.TrimSpace(*input.Explanation)
	}
	if input.Difficulty != nil {
		if !entity.IsValidDifficulty(*input.Difficulty) {
			return nil, fmt.Errorf("%w: difficulty must be between %d and %d", apperrors.ErrValidation, entity.MinDifficulty, entity.MaxDifficulty)
		}
		updates["difficulty"] = *input.Difficulty
	}
	if input.PublishDate != nil {
		publishDate, err := ParsePublishDate(*input.PublishDate)
		if err != nil {
			return nil, err
		}
		if !publishDate.Equal(existing.PublishDay()) {
			if err := s.ensureDateFree(ctx, publishDate, id); err != nil {
				return nil, err
			}
			updates["publish_date"] = publishDate
			affectedDays = append(affectedDays, publishDate)
		}
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.puzzleRepo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to update puzzle %d: %w", id, err)
	}
	s.invalidate(ctx, affectedDays...)

	updated, err := s.puzzleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload puzzle %d: %w", id, err)
	}
	return updated, nil
}

// Delete удаляет головоломку, если на нее не ссылается ни одно решение
func (s *PuzzleService) Delete(ctx context.Context, id uint) error {
	puzzle, err := s.puzzleRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("puzzle %d: %w", id, err)
	}

	count, err := s.solutionRepo.CountByPuzzle(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count solutions for puzzle %d: %w", id, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: puzzle %d has %d solutions and cannot be deleted, deactivate it instead", apperrors.ErrConflict, id, count)
	}

	if err := s.puzzleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete puzzle %d: %w", id, err)
	}

	log.Printf("[PuzzleService] Удалена головоломка ID=%d", id)
	s.invalidate(ctx, puzzle.PublishDay())
	return nil
}

// ensureDateFree проверяет, что день не занят другой головоломкой (кроме exceptID)
func (s *PuzzleService) ensureDateFree(ctx context.Context, day time.Time, exceptID uint) error {
	other, err := s.puzzleRepo.GetByPublishDate(ctx, day)
	switch {
	case err == nil:
		if other.ID != exceptID {
			return fmt.Errorf("%w: a puzzle already exists for %s", apperrors.ErrConflict, day.Format(publishDateLayout))
		}
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check publish date: %w", err)
	}
}

// invalidate сбрасывает кеш головоломки дня для указанных дат
func (s *PuzzleService) invalidate(ctx context.Context, days ...time.Time) {
	if s.cacheRepo == nil || len(days) == 0 {
		return
	}
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = dailyCacheKey(d)
	}
	if err := s.cacheRepo.Delete(ctx, keys...); err != nil {
		log.Printf("[PuzzleService] Не удалось инвалидировать кеш %v: %v", keys, err)
	}
}

// ParsePublishDate принимает YYYY-MM-DD или RFC3339 и возвращает полночь UTC этого дня
func ParsePublishDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(publishDateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: publishDate must be YYYY-MM-DD or RFC3339", apperrors.ErrValidation)
	}
	return entity.TruncateToUTCDay(t), nil
}

func dailyCacheKey(day time.Time) string {
	return dailyCacheKeyPrefix + entity.TruncateToUTCDay(day).Format(publishDateLayout)
}
