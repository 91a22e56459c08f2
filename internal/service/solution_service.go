package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
	"github.com/yourusername/cryptic-api/internal/service/dailypuzzle"
)

// SubmitInput: одна попытка ответа пользователя
type SubmitInput struct {
	UserID    uint
	PuzzleID  uint
	Answer    string
	TimeSpent int
}

// SubmitResult: результат отправки. CorrectAnswer и Explanation заполняются только при верном ответе.
type SubmitResult struct {
	IsCorrect     bool
	Solution      *entity.Solution
	CorrectAnswer string
	Explanation   string
}

// ValidateResult: результат анонимной проверки
type ValidateResult struct {
	IsCorrect   bool
	Explanation string
}

// SolutionExportRow: строка выгрузки решений
type SolutionExportRow struct {
	Solution entity.Solution
	Email    string
}

// SolutionExport: все решения головоломки для выгрузки
type SolutionExport struct {
	Puzzle *entity.Puzzle
	Rows   []SolutionExportRow
}

// SolutionService принимает ответы и проверяет их
type SolutionService struct {
	puzzleRepo      repository.PuzzleRepository
	solutionRepo    repository.SolutionRepository
	userRepo        repository.UserRepository
	maxAnswerLength int
}

// NewSolutionService создает новый сервис решений
func NewSolutionService(
	puzzleRepo repository.PuzzleRepository,
	solutionRepo repository.SolutionRepository,
	userRepo repository.UserRepository,
	maxAnswerLength int,
) *SolutionService {
	return &SolutionService{
		puzzleRepo:      puzzleRepo,
		solutionRepo:    solutionRepo,
		userRepo:        userRepo,
		maxAnswerLength: maxAnswerLength,
	}
}

// Submit записывает единственную попытку пользователя для головоломки
func (s *SolutionService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if input.UserID == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	if err := s.checkAnswerInput(input.PuzzleID, input.Answer); err != nil {
		return nil, err
	}
	if input.TimeSpent < 0 {
		return nil, fmt.Errorf("%w: timeSpent cannot be negative", apperrors.ErrValidation)
	}

	puzzle, err := s.puzzleRepo.GetByID(ctx, input.PuzzleID)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", input.PuzzleID, err)
	}

	// Быстрый путь. Окончательное решение принимает уникальный индекс при вставке.
	_, err = s.solutionRepo.GetByUserAndPuzzle(ctx, input.UserID, input.PuzzleID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: you have already submitted an answer for this puzzle", apperrors.ErrConflict)
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to check existing solution: %w", err)
	}

	isCorrect := dailypuzzle.Matches(input.Answer, puzzle.Answer)

	solution := &entity.Solution{
		UserID:     input.UserID,
		PuzzleID:   puzzle.ID,
		UserAnswer: input.Answer,
		IsCorrect:  isCorrect,
		TimeSpent:  input.TimeSpent,
	}
	if err := s.solutionRepo.InsertIfAbsent(ctx, solution); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save solution: %w", err)
	}

	log.Printf("[SolutionService] user=%d puzzle=%d correct=%t time=%ds", input.UserID, puzzle.ID, isCorrect, input.TimeSpent)

	result := &SubmitResult{IsCorrect: isCorrect, Solution: solution}
	if isCorrect {
		result.CorrectAnswer = puzzle.Answer
		result.Explanation = puzzle.Explanation
	}
	return result, nil
}

// Validate проверяет ответ без сохранения
func (s *SolutionService) Validate(ctx context.Context, puzzleID uint, answer string) (*ValidateResult, error) {
	if err := s.checkAnswerInput(puzzleID, answer); err != nil {
		return nil, err
	}

	puzzle, err := s.puzzleRepo.GetByID(ctx, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzleID, err)
	}

	result := &ValidateResult{IsCorrect: dailypuzzle.Matches(answer, puzzle.Answer)}
	if result.IsCorrect {
		result.Explanation = puzzle.Explanation
	}
	return result, nil
}

// ExportSolutions собирает решения головоломки вместе с email авторов
func (s *SolutionService) ExportSolutions(ctx context.Context, puzzleID uint) (*SolutionExport, error) {
	puzzle, err := s.puzzleRepo.GetByID(ctx, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzleID, err)
	}

	solutions, err := s.solutionRepo.ListByPuzzle(ctx, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}

	userIDs := make([]uint, 0, len(solutions))
	seen := make(map[uint]struct{}, len(solutions))
	for _, sol := range solutions {
		if _, ok := seen[sol.UserID]; ok {
			continue
		}
		seen[sol.UserID] = struct{}{}
		userIDs = append(userIDs, sol.UserID)
	}

	emails := map[uint]string{}
	if len(userIDs) > 0 {
		emails, err = s.userRepo.GetEmailsByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load user emails: %w", err)
		}
	}

	rows := make([]SolutionExportRow, len(solutions))
	for i, sol := range solutions {
		rows[i] = SolutionExportRow{Solution: sol, Email: emails[sol.UserID]}
	}

	return &SolutionExport{Puzzle: puzzle, Rows: rows}, nil
}

func (s *SolutionService) checkAnswerInput(puzzleID uint, answer string) error {
	// Ответ из одних пробелов допустим: он нормализуется в пустую строку и просто не совпадет
	if puzzleID == 0 || answer == "" {
		return fmt.Errorf("%w: puzzleId and answer are required", apperrors.ErrValidation)
	}
	if s.maxAnswerLength > 0 && utf8.RuneCountInString(answer) > s.maxAnswerLength {
		return fmt.Errorf("%w: answer is longer than %d characters", apperrors.ErrValidation, s.maxAnswerLength)
	}
	return nil
}
