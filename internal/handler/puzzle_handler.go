package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cryptic-api/internal/handler/dto"
	"github.com/yourusername/cryptic-api/internal/middleware"
	"github.com/yourusername/cryptic-api/internal/service"
)

// DailyPuzzleProvider: источник головоломки дня
type DailyPuzzleProvider interface {
	Today(ctx context.Context, userID *uint) (*service.DailyPuzzle, error)
}

// AnswerChecker принимает и проверяет ответы
type AnswerChecker interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error)
	Validate(ctx context.Context, puzzleID uint, answer string) (*service.ValidateResult, error)
}

// PuzzleHandler обрабатывает публичные запросы головоломок
type PuzzleHandler struct {
	puzzles   DailyPuzzleProvider
	solutions AnswerChecker
}

// NewPuzzleHandler создает новый обработчик головоломок
func NewPuzzleHandler(puzzles DailyPuzzleProvider, solutions AnswerChecker) *PuzzleHandler {
	return &PuzzleHandler{puzzles: puzzles, solutions: solutions}
}

// GetDaily возвращает головоломку дня
// GET /api/puzzles/daily
func (h *PuzzleHandler) GetDaily(c *gin.Context) {
	var userID *uint
	if id, ok := middleware.UserID(c); ok {
		userID = &id
	}

	daily, err := h.puzzles.Today(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "PuzzleHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewDailyPuzzleResponse(daily))
}

// Submit принимает единственную попытку пользователя
// POST /api/puzzles/submit
func (h *PuzzleHandler) Submit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.solutions.Submit(c.Request.Context(), service.SubmitInput{
		UserID:    userID,
		PuzzleID:  req.PuzzleID,
		Answer:    req.Answer,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		handleError(c, "PuzzleHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmitResponse(result))
}

// Validate проверяет ответ без сохранения
// POST /api/puzzles/validate
func (h *PuzzleHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.solutions.Validate(c.Request.Context(), req.PuzzleID, req.Answer)
	if err != nil {
		handleError(c, "PuzzleHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.ValidateResponse{IsCorrect: result.IsCorrect, Explanation: result.Explanation})
}
