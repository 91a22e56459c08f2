package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	"github.com/yourusername/cryptic-api/internal/middleware"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
	"github.com/yourusername/cryptic-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Моки сервисов
// ============================================================================

type MockPuzzleService struct {
	mock.Mock
}

func (m *MockPuzzleService) Today(ctx context.Context, userID *uint) (*service.DailyPuzzle, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DailyPuzzle), args.Error(1)
}

func (m *MockPuzzleService) List(ctx context.Context, page, pageSize int) (*service.PuzzlePage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PuzzlePage), args.Error(1)
}

func (m *MockPuzzleService) Create(ctx context.Context, input service.CreatePuzzleInput) (*entity.Puzzle, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Puzzle), args.Error(1)
}

func (m *MockPuzzleService) Update(ctx context.Context, id uint, input service.UpdatePuzzleInput) (*entity.Puzzle, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Puzzle), args.Error(1)
}

func (m *MockPuzzleService) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSolutionService struct {
	mock.Mock
}

func (m *MockSolutionService) Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockSolutionService) Validate(ctx context.Context, puzzleID uint, answer string) (*service.ValidateResult, error) {
	args := m.Called(ctx, puzzleID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ValidateResult), args.Error(1)
}

func (m *MockSolutionService) ExportSolutions(ctx context.Context, puzzleID uint) (*service.SolutionExport, error) {
	args := m.Called(ctx, puzzleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SolutionExport), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*entity.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID uint) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// ============================================================================
// Хелперы
// ============================================================================

// asUser имитирует RequireAuth: кладет user_id в контекст
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id)
		c.Next()
	}
}

func perform(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func samplePuzzle() entity.Puzzle {
	return entity.Puzzle{
		ID:          7,
		Clue:        "Italian restaurant chain's olive tree plot (5,6)",
		Answer:      "Olive Garden",
		Explanation: "Olive + garden",
		Difficulty:  3,
		PublishDate: time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
		IsActive:    true,
	}
}

func isNilUint(id *uint) bool { return id == nil }

// ============================================================================
// PuzzleHandler
// ============================================================================

func TestGetDaily_Anonymous(t *testing.T) {
	puzzles := new(MockPuzzleService)
	h := NewPuzzleHandler(puzzles, new(MockSolutionService))
	r := gin.New()
	r.GET("/api/puzzles/daily", h.GetDaily)

	p := samplePuzzle()
	p.Answer = ""
	p.Explanation = ""
	puzzles.On("Today", mock.Anything, mock.MatchedBy(isNilUint)).Return(&service.DailyPuzzle{Puzzle: p}, nil)

	w := perform(r, http.MethodGet, "/api/puzzles/daily", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, false, resp["hasSolved"])
	assert.Nil(t, resp["userSolution"])
	puzzle := resp["puzzle"].(map[string]interface{})
	assert.Equal(t, "2025-12-26", puzzle["publishDate"])
	assert.NotContains(t, puzzle, "answer")
	assert.NotContains(t, puzzle, "explanation")
}

func TestGetDaily_AuthenticatedUserPassesID(t *testing.T) {
	puzzles := new(MockPuzzleService)
	h := NewPuzzleHandler(puzzles, new(MockSolutionService))
	r := gin.New()
	r.GET("/api/puzzles/daily", asUser(42), h.GetDaily)

	p := samplePuzzle()
	p.Answer = ""
	sol := &entity.Solution{ID: 1, UserID: 42, PuzzleID: 7, UserAnswer: "olive garden", IsCorrect: true}
	puzzles.On("Today", mock.Anything, mock.MatchedBy(func(id *uint) bool { return id != nil && *id == 42 })).
		Return(&service.DailyPuzzle{Puzzle: p, HasSolved: true, Solution: sol}, nil)

	w := perform(r, http.MethodGet, "/api/puzzles/daily", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["hasSolved"])
	assert.Equal(t, true, resp["userSolution"].(map[string]interface{})["isCorrect"])
	assert.Equal(t, "Olive + garden", resp["puzzle"].(map[string]interface{})["explanation"])
}

func TestGetDaily_NoPuzzle(t *testing.T) {
	puzzles := new(MockPuzzleService)
	h := NewPuzzleHandler(puzzles, new(MockSolutionService))
	r := gin.New()
	r.GET("/api/puzzles/daily", h.GetDaily)

	puzzles.On("Today", mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)

	w := perform(r, http.MethodGet, "/api/puzzles/daily", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		user       bool
		body       interface{}
		setup      func(m *MockSolutionService)
		wantStatus int
		check      func(t *testing.T, resp map[string]interface{})
	}{
		{
			name:       "unauthenticated",
			body:       map[string]interface{}{"puzzleId": 7, "answer": "x"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing answer",
			user:       true,
			body:       map[string]interface{}{"puzzleId": 7},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative time",
			user:       true,
			body:       map[string]interface{}{"puzzleId": 7, "answer": "x", "timeSpent": -3},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "correct",
			user: true,
			body: map[string]interface{}{"puzzleId": 7, "answer": "Olive garden", "timeSpent": 30},
			setup: func(m *MockSolutionService) {
				m.On("Submit", mock.Anything, service.SubmitInput{UserID: 42, PuzzleID: 7, Answer: "Olive garden", TimeSpent: 30}).
					Return(&service.SubmitResult{
						IsCorrect:     true,
						Solution:      &entity.Solution{ID: 3, PuzzleID: 7, UserAnswer: "Olive garden", IsCorrect: true, TimeSpent: 30},
						CorrectAnswer: "Olive Garden",
						Explanation:   "Olive + garden",
					}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				assert.Equal(t, true, resp["isCorrect"])
				assert.Equal(t, "Olive Garden", resp["correctAnswer"])
				assert.Equal(t, "Olive + garden", resp["explanation"])
			},
		},
		{
			name: "incorrect hides answer",
			user: true,
			body: map[string]interface{}{"puzzleId": 7, "answer": "olive"},
			setup: func(m *MockSolutionService) {
				m.On("Submit", mock.Anything, mock.Anything).
					Return(&service.SubmitResult{Solution: &entity.Solution{ID: 3, PuzzleID: 7, UserAnswer: "olive"}}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				assert.Equal(t, false, resp["isCorrect"])
				assert.NotContains(t, resp, "correctAnswer")
				assert.NotContains(t, resp, "explanation")
			},
		},
		{
			name: "already submitted",
			user: true,
			body: map[string]interface{}{"puzzleId": 7, "answer": "olive"},
			setup: func(m *MockSolutionService) {
				m.On("Submit", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "unknown puzzle",
			user: true,
			body: map[string]interface{}{"puzzleId": 99, "answer": "olive"},
			setup: func(m *MockSolutionService) {
				m.On("Submit", mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "internal error is masked",
			user: true,
			body: map[string]interface{}{"puzzleId": 7, "answer": "olive"},
			setup: func(m *MockSolutionService) {
				m.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("pq: connection reset"))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, resp map[string]interface{}) {
				assert.Equal(t, "Internal server error", resp["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solutions := new(MockSolutionService)
			if tt.setup != nil {
				tt.setup(solutions)
			}
			h := NewPuzzleHandler(new(MockPuzzleService), solutions)
			r := gin.New()
			if tt.user {
				r.POST("/api/puzzles/submit", asUser(42), h.Submit)
			} else {
				r.POST("/api/puzzles/submit", h.Submit)
			}

			w := perform(r, http.MethodPost, "/api/puzzles/submit", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, parseJSONResponse(t, w))
			}
			if tt.setup == nil {
				solutions.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	solutions := new(MockSolutionService)
	h := NewPuzzleHandler(new(MockPuzzleService), solutions)
	r := gin.New()
	r.POST("/api/puzzles/validate", h.Validate)

	solutions.On("Validate", mock.Anything, uint(7), "olive garden").
		Return(&service.ValidateResult{IsCorrect: true, Explanation: "Olive + garden"}, nil)
	solutions.On("Validate", mock.Anything, uint(8), "x").Return(nil, apperrors.ErrNotFound)

	w := perform(r, http.MethodPost, "/api/puzzles/validate", map[string]interface{}{"puzzleId": 7, "answer": "olive garden"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["isCorrect"])
	assert.Equal(t, "Olive + garden", resp["explanation"])

	w = perform(r, http.MethodPost, "/api/puzzles/validate", map[string]interface{}{"puzzleId": 8, "answer": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodPost, "/api/puzzles/validate", map[string]interface{}{"answer": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// AdminHandler
// ============================================================================

func newAdminRouter(puzzles *MockPuzzleService, solutions *MockSolutionService) *gin.Engine {
	h := NewAdminHandler(puzzles, solutions)
	r := gin.New()
	admin := r.Group("/api/admin/puzzles")
	admin.GET("", h.ListPuzzles)
	admin.POST("", h.CreatePuzzle)
	withID := admin.Group("/:id", middleware.ExtractUintParam("id", "puzzleID"))
	withID.PUT("", h.UpdatePuzzle)
	withID.DELETE("", h.DeletePuzzle)
	withID.GET("/solutions/export", h.ExportSolutions)
	return r
}

func TestAdminListPuzzles(t *testing.T) {
	puzzles := new(MockPuzzleService)
	r := newAdminRouter(puzzles, new(MockSolutionService))

	puzzles.On("List", mock.Anything, 2, 10).Return(&service.PuzzlePage{
		Items:   []repository.PuzzleWithCount{{Puzzle: samplePuzzle(), SolutionCount: 12}},
		Total:   11,
		Page:    2,
		PerPage: 10,
	}, nil)

	w := perform(r, http.MethodGet, "/api/admin/puzzles?page=2&page_size=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, float64(11), resp["total"])
	items := resp["puzzles"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Olive Garden", first["answer"])
	assert.Equal(t, float64(12), first["solutionCount"])
}

func TestAdminCreatePuzzle(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		puzzles := new(MockPuzzleService)
		r := newAdminRouter(puzzles, new(MockSolutionService))
		p := samplePuzzle()
		puzzles.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreatePuzzleInput) bool {
			return in.Clue == p.Clue && in.PublishDate == "2025-12-26" && in.Difficulty == nil
		})).Return(&p, nil)

		w := perform(r, http.MethodPost, "/api/admin/puzzles", map[string]interface{}{
			"clue": p.Clue, "answer": p.Answer, "publishDate": "2025-12-26",
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("difficulty out of range", func(t *testing.T) {
		puzzles := new(MockPuzzleService)
		r := newAdminRouter(puzzles, new(MockSolutionService))

		w := perform(r, http.MethodPost, "/api/admin/puzzles", map[string]interface{}{
			"clue": "c", "answer": "a", "publishDate": "2025-12-26", "difficulty": 7,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		puzzles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("date taken", func(t *testing.T) {
		puzzles := new(MockPuzzleService)
		r := newAdminRouter(puzzles, new(MockSolutionService))
		puzzles.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict)

		w := perform(r, http.MethodPost, "/api/admin/puzzles", map[string]interface{}{
			"clue": "c", "answer": "a", "publishDate": "2025-12-26",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminUpdateAndDelete(t *testing.T) {
	puzzles := new(MockPuzzleService)
	r := newAdminRouter(puzzles, new(MockSolutionService))

	p := samplePuzzle()
	p.IsActive = false
	puzzles.On("Update", mock.Anything, uint(7), mock.MatchedBy(func(in service.UpdatePuzzleInput) bool {
		return in.IsActive != nil && !*in.IsActive && in.Clue == nil
	})).Return(&p, nil)
	puzzles.On("Delete", mock.Anything, uint(7)).Return(apperrors.ErrConflict)
	puzzles.On("Delete", mock.Anything, uint(8)).Return(nil)

	w := perform(r, http.MethodPut, "/api/admin/puzzles/7", map[string]interface{}{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, parseJSONResponse(t, w)["isActive"])

	w = perform(r, http.MethodDelete, "/api/admin/puzzles/7", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(r, http.MethodDelete, "/api/admin/puzzles/8", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodDelete, "/api/admin/puzzles/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func sampleExport() *service.SolutionExport {
	p := samplePuzzle()
	created := time.Date(2025, 12, 26, 8, 15, 0, 0, time.UTC)
	return &service.SolutionExport{
		Puzzle: &p,
		Rows: []service.SolutionExportRow{
			{Solution: entity.Solution{ID: 1, UserID: 10, PuzzleID: 7, UserAnswer: "olive garden", IsCorrect: true, TimeSpent: 40, CreatedAt: created}, Email: "a@example.com"},
			{Solution: entity.Solution{ID: 2, UserID: 11, PuzzleID: 7, UserAnswer: "=HYPERLINK(\"x\")", TimeSpent: 5, CreatedAt: created}, Email: "b@example.com"},
		},
	}
}

func TestAdminExportSolutions_CSV(t *testing.T) {
	solutions := new(MockSolutionService)
	r := newAdminRouter(new(MockPuzzleService), solutions)
	solutions.On("ExportSolutions", mock.Anything, uint(7)).Return(sampleExport(), nil)

	w := perform(r, http.MethodGet, "/api/admin/puzzles/7/solutions/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "puzzle_7_2025-12-26_solutions.csv")

	body := w.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(string(body[3:])), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "a@example.com,olive garden,Да,40,2025-12-26T08:15:00Z")
	// Формула экранирована апострофом
	assert.Contains(t, lines[2], `'=HYPERLINK(""x"")`)
}

func TestAdminExportSolutions_XLSX(t *testing.T) {
	solutions := new(MockSolutionService)
	r := newAdminRouter(new(MockPuzzleService), solutions)
	solutions.On("ExportSolutions", mock.Anything, uint(7)).Return(sampleExport(), nil)

	w := perform(r, http.MethodGet, "/api/admin/puzzles/7/solutions/export?format=xlsx", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Решения")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Email", rows[0][1])
	assert.Equal(t, "a@example.com", rows[1][1])
}

func TestAdminExportSolutions_BadFormat(t *testing.T) {
	solutions := new(MockSolutionService)
	r := newAdminRouter(new(MockPuzzleService), solutions)

	w := perform(r, http.MethodGet, "/api/admin/puzzles/7/solutions/export?format=pdf", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	solutions.AssertNotCalled(t, "ExportSolutions", mock.Anything, mock.Anything)
}

func TestSanitizeForExcel(t *testing.T) {
	for in, want := range map[string]string{
		"":             "",
		"olive garden": "olive garden",
		"=1+1":         "'=1+1",
		"+7":           "'+7",
		"-x":           "'-x",
		"@SUM(A1)":     "'@SUM(A1)",
	} {
		assert.Equal(t, want, sanitizeForExcel(in), in)
	}
}

// ============================================================================
// AuthHandler
// ============================================================================

func TestAuthHandler(t *testing.T) {
	authSvc := new(MockAuthService)
	h := NewAuthHandler(authSvc)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/users/me", asUser(5), h.Me)
	r.GET("/api/users/anon", h.Me)

	user := &entity.User{ID: 5, Email: "solver@example.com", Role: entity.RoleUser}
	login := &service.LoginResult{AccessToken: "token", ExpiresIn: 24 * time.Hour, User: user}

	authSvc.On("Register", mock.Anything, "solver@example.com", "secret1", "").Return(user, nil)
	authSvc.On("Login", mock.Anything, "solver@example.com", "secret1").Return(login, nil)
	authSvc.On("Login", mock.Anything, "solver@example.com", "nope").Return(nil, apperrors.ErrUnauthorized)
	authSvc.On("Me", mock.Anything, uint(5)).Return(user, nil)

	w := perform(r, http.MethodPost, "/api/auth/register", map[string]string{"email": "solver@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "token", resp["accessToken"])
	assert.Equal(t, "Bearer", resp["tokenType"])
	assert.Equal(t, float64(86400), resp["expiresIn"])

	w = perform(r, http.MethodPost, "/api/auth/register", map[string]string{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/auth/login", map[string]string{"email": "solver@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "solver@example.com", parseJSONResponse(t, w)["email"])
	assert.NotContains(t, w.Body.String(), "password")

	w = perform(r, http.MethodGet, "/api/users/anon", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
