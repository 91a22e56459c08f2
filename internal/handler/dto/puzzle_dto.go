package dto

import (
	"time"

	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	"github.com/yourusername/cryptic-api/internal/service"
)

// DateLayout: формат даты публикации в API
const DateLayout = "2006-01-02"

// PuzzleResponse: головоломка для игрока. Поля answer здесь нет.
type PuzzleResponse struct {
	ID          uint      `json:"id"`
	Clue        string    `json:"clue"`
	Explanation string    `json:"explanation,omitempty"`
	Difficulty  int       `json:"difficulty"`
	PublishDate string    `json:"publishDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SolutionResponse: сохраненная попытка пользователя
type SolutionResponse struct {
	ID         uint      `json:"id"`
	PuzzleID   uint      `json:"puzzleId"`
	UserAnswer string    `json:"userAnswer"`
	IsCorrect  bool      `json:"isCorrect"`
	TimeSpent  int       `json:"timeSpent"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DailyPuzzleResponse: ответ GET /api/puzzles/daily
type DailyPuzzleResponse struct {
	Puzzle       PuzzleResponse    `json:"puzzle"`
	UserSolution *SolutionResponse `json:"userSolution"`
	HasSolved    bool              `json:"hasSolved"`
}

// SubmitRequest: тело POST /api/puzzles/submit
type SubmitRequest struct {
	PuzzleID  uint   `json:"puzzleId" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
	TimeSpent int    `json:"timeSpent" binding:"min=0"`
}

// SubmitResponse: результат отправки ответа
type SubmitResponse struct {
	IsCorrect     bool             `json:"isCorrect"`
	Solution      SolutionResponse `json:"solution"`
	CorrectAnswer string           `json:"correctAnswer,omitempty"`
	Explanation   string           `json:"explanation,omitempty"`
}

// ValidateRequest: тело POST /api/puzzles/validate
type ValidateRequest struct {
	PuzzleID uint   `json:"puzzleId" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

// ValidateResponse: результат анонимной проверки
type ValidateResponse struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// NewPuzzleResponse строит ответ без канонического ответа
func NewPuzzleResponse(p *entity.Puzzle) PuzzleResponse {
	return PuzzleResponse{
		ID:          p.ID,
		Clue:        p.Clue,
		Explanation: p.Explanation,
		Difficulty:  p.Difficulty,
		PublishDate: p.PublishDay().Format(DateLayout),
		CreatedAt:   p.CreatedAt,
	}
}

// NewSolutionResponse преобразует решение в DTO
func NewSolutionResponse(s *entity.Solution) SolutionResponse {
	return SolutionResponse{
		ID:         s.ID,
		PuzzleID:   s.PuzzleID,
		UserAnswer: s.UserAnswer,
		IsCorrect:  s.IsCorrect,
		TimeSpent:  s.TimeSpent,
		CreatedAt:  s.CreatedAt,
	}
}

// NewDailyPuzzleResponse преобразует результат сервиса в DTO
func NewDailyPuzzleResponse(d *service.DailyPuzzle) DailyPuzzleResponse {
	resp := DailyPuzzleResponse{
		Puzzle:    NewPuzzleResponse(&d.Puzzle),
		HasSolved: d.HasSolved,
	}
	if d.Solution != nil {
		sol := NewSolutionResponse(d.Solution)
		resp.UserSolution = &sol
	}
	return resp
}

// NewSubmitResponse преобразует результат отправки в DTO
func NewSubmitResponse(r *service.SubmitResult) SubmitResponse {
	return SubmitResponse{
		IsCorrect:     r.IsCorrect,
		Solution:      NewSolutionResponse(r.Solution),
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
	}
}

// ============================================================================
// Админка
// ============================================================================

// AdminPuzzleResponse: головоломка для администратора, включая ответ
type AdminPuzzleResponse struct {
	ID            uint      `json:"id"`
	Clue          string    `json:"clue"`
	Answer        string    `json:"answer"`
	Explanation   string    `json:"explanation"`
	Difficulty    int       `json:"difficulty"`
	PublishDate   string    `json:"publishDate"`
	IsActive      bool      `json:"isActive"`
	SolutionCount int64     `json:"solutionCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AdminPuzzleListResponse: пагинированный список
type AdminPuzzleListResponse struct {
	Puzzles []AdminPuzzleResponse `json:"puzzles"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"perPage"`
}

// CreatePuzzleRequest: тело POST /api/admin/puzzles
type CreatePuzzleRequest struct {
	Clue        string `json:"clue" binding:"required"`
	Answer      string `json:"answer" binding:"required,max=255"`
	Explanation string `json:"explanation"`
	Difficulty  *int   `json:"difficulty" binding:"omitempty,min=1,max=5"`
	PublishDate string `json:"publishDate" binding:"required"`
}

// UpdatePuzzleRequest: тело PUT /api/admin/puzzles/:id. Отсутствующие поля не меняются.
type UpdatePuzzleRequest struct {
	Clue        *string `json:"clue"`
	Answer      *string `json:"answer" binding:"omitempty,max=255"`
	Explanation *string `json:"explanation"`
	Difficulty  *int    `json:"difficulty" binding:"omitempty,min=1,max=5"`
	PublishDate *string `json:"publishDate"`
	IsActive    *bool   `json:"isActive"`
}

// ToInput преобразует запрос в вход сервиса
func (r *CreatePuzzleRequest) ToInput() service.CreatePuzzleInput {
	return service.CreatePuzzleInput{
		Clue:        r.Clue,
		Answer:      r.Answer,
		Explanation: r.Explanation,
		Difficulty:  r.Difficulty,
		PublishDate: r.PublishDate,
	}
}

// ToInput преобразует запрос в вход сервиса
func (r *UpdatePuzzleRequest) ToInput() service.UpdatePuzzleInput {
	return service.UpdatePuzzleInput{
		Clue:        r.Clue,
		Answer:      r.Answer,
		Explanation: r.Explanation,
		Difficulty:  r.Difficulty,
		PublishDate: r.PublishDate,
		IsActive:    r.IsActive,
	}
}

// NewAdminPuzzleResponse преобразует головоломку в админский DTO
func NewAdminPuzzleResponse(p *entity.Puzzle, solutionCount int64) AdminPuzzleResponse {
	return AdminPuzzleResponse{
		ID:            p.ID,
		Clue:          p.Clue,
		Answer:        p.Answer,
		Explanation:   p.Explanation,
		Difficulty:    p.Difficulty,
		PublishDate:   p.PublishDay().Format(DateLayout),
		IsActive:      p.IsActive,
		SolutionCount: solutionCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// NewAdminPuzzleListResponse преобразует страницу сервиса в DTO
func NewAdminPuzzleListResponse(page *service.PuzzlePage) AdminPuzzleListResponse {
	return AdminPuzzleListResponse{
		Puzzles: newAdminPuzzles(page.Items),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
	}
}

func newAdminPuzzles(items []repository.PuzzleWithCount) []AdminPuzzleResponse {
	out := make([]AdminPuzzleResponse, len(items))
	for i := range items {
		out[i] = NewAdminPuzzleResponse(&items[i].Puzzle, items[i].SolutionCount)
	}
	return out
}
