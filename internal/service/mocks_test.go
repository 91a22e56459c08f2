package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев для тестов сервисного слоя
// ============================================================================

// MockPuzzleRepository реализует repository.PuzzleRepository
type MockPuzzleRepository struct {
	mock.Mock
}

func (m *MockPuzzleRepository) Create(ctx context.Context, puzzle *entity.Puzzle) error {
	args := m.Called(ctx, puzzle)
	return args.Error(0)
}

func (m *MockPuzzleRepository) GetByID(ctx context.Context, id uint) (*entity.Puzzle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Puzzle), args.Error(1)
}

func (m *MockPuzzleRepository) GetByPublishDate(ctx context.Context, day time.Time) (*entity.Puzzle, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Puzzle), args.Error(1)
}

func (m *MockPuzzleRepository) FindActiveInRange(ctx context.Context, start, end time.Time) ([]entity.Puzzle, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Puzzle), args.Error(1)
}

func (m *MockPuzzleRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockPuzzleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPuzzleRepository) ListWithSolutionCount(ctx context.Context, limit, offset int) ([]repository.PuzzleWithCount, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]repository.PuzzleWithCount), args.Get(1).(int64), args.Error(2)
}

// MockSolutionRepository реализует repository.SolutionRepository
type MockSolutionRepository struct {
	mock.Mock
}

func (m *MockSolutionRepository) GetByUserAndPuzzle(ctx context.Context, userID, puzzleID uint) (*entity.Solution, error) {
	args := m.Called(ctx, userID, puzzleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Solution), args.Error(1)
}

func (m *MockSolutionRepository) InsertIfAbsent(ctx context.Context, solution *entity.Solution) error {
	args := m.Called(ctx, solution)
	return args.Error(0)
}

func (m *MockSolutionRepository) CountByPuzzle(ctx context.Context, puzzleID uint) (int64, error) {
	args := m.Called(ctx, puzzleID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSolutionRepository) ListByPuzzle(ctx context.Context, puzzleID uint) ([]entity.Solution, error) {
	args := m.Called(ctx, puzzleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Solution), args.Error(1)
}

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetEmailsByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]string), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// ============================================================================
// memSolutionRepo: потокобезопасная реализация в памяти с уникальностью (user, puzzle),
// ведет себя как таблица solutions с уникальным индексом.
// ============================================================================

type memSolutionRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[[2]uint]entity.Solution
	// checkBarrier, если задан, задерживает каждую проверку до тех пор,
	// пока все участники гонки не выполнят свою проверку.
	checkBarrier *sync.WaitGroup
}

func newMemSolutionRepo() *memSolutionRepo {
	return &memSolutionRepo{rows: make(map[[2]uint]entity.Solution)}
}

func (r *memSolutionRepo) GetByUserAndPuzzle(_ context.Context, userID, puzzleID uint) (*entity.Solution, error) {
	r.mu.Lock()
	row, ok := r.rows[[2]uint{userID, puzzleID}]
	r.mu.Unlock()

	if r.checkBarrier != nil {
		r.checkBarrier.Done()
		r.checkBarrier.Wait()
	}

	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &row, nil
}

func (r *memSolutionRepo) InsertIfAbsent(_ context.Context, solution *entity.Solution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]uint{solution.UserID, solution.PuzzleID}
	if _, exists := r.rows[key]; exists {
		return fmt.Errorf("%w: solution already submitted", apperrors.ErrConflict)
	}
	r.nextID++
	solution.ID = r.nextID
	solution.CreatedAt = time.Now()
	r.rows[key] = *solution
	return nil
}

func (r *memSolutionRepo) CountByPuzzle(_ context.Context, puzzleID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.rows {
		if key[1] == puzzleID {
			n++
		}
	}
	return n, nil
}

func (r *memSolutionRepo) ListByPuzzle(_ context.Context, puzzleID uint) ([]entity.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Solution
	for key, row := range r.rows {
		if key[1] == puzzleID {
			out = append(out, row)
		}
	}
	return out, nil
}
