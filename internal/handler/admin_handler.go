package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/cryptic-api/internal/domain/entity"
	"github.com/yourusername/cryptic-api/internal/handler/dto"
	"github.com/yourusername/cryptic-api/internal/service"
)

// PuzzleAdmin: админский CRUD головоломок
type PuzzleAdmin interface {
	List(ctx context.Context, page, pageSize int) (*service.PuzzlePage, error)
	Create(ctx context.Context, input service.CreatePuzzleInput) (*entity.Puzzle, error)
	Update(ctx context.Context, id uint, input service.UpdatePuzzleInput) (*entity.Puzzle, error)
	Delete(ctx context.Context, id uint) error
}

// SolutionExporter отдает решения для выгрузки
type SolutionExporter interface {
	ExportSolutions(ctx context.Context, puzzleID uint) (*service.SolutionExport, error)
}

// AdminHandler обрабатывает админские запросы
type AdminHandler struct {
	puzzles  PuzzleAdmin
	exporter SolutionExporter
}

// NewAdminHandler создает новый админский обработчик
func NewAdminHandler(puzzles PuzzleAdmin, exporter SolutionExporter) *AdminHandler {
	return &AdminHandler{puzzles: puzzles, exporter: exporter}
}

// ListPuzzles возвращает головоломки с количеством решений
// GET /api/admin/puzzles?page=1&page_size=20
func (h *AdminHandler) ListPuzzles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.puzzles.List(c.Request.Context(), page, pageSize)
	if err != nil {
		handleError(c, "AdminHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAdminPuzzleListResponse(result))
}

// CreatePuzzle создает головоломку
// POST /api/admin/puzzles
func (h *AdminHandler) CreatePuzzle(c *gin.Context) {
	var req dto.CreatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	puzzle, err := h.puzzles.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		handleError(c, "AdminHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAdminPuzzleResponse(puzzle, 0))
}

// UpdatePuzzle частично обновляет головоломку
// PUT /api/admin/puzzles/:id
func (h *AdminHandler) UpdatePuzzle(c *gin.Context) {
	puzzleID := c.MustGet("puzzleID").(uint)

	var req dto.UpdatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	puzzle, err := h.puzzles.Update(c.Request.Context(), puzzleID, req.ToInput())
	if err != nil {
		handleError(c, "AdminHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAdminPuzzleResponse(puzzle, 0))
}

// DeletePuzzle удаляет головоломку без решений
// DELETE /api/admin/puzzles/:id
func (h *AdminHandler) DeletePuzzle(c *gin.Context) {
	puzzleID := c.MustGet("puzzleID").(uint)

	if err := h.puzzles.Delete(c.Request.Context(), puzzleID); err != nil {
		handleError(c, "AdminHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Puzzle deleted successfully"})
}

// ExportSolutions выгружает решения головоломки в CSV или Excel
// GET /api/admin/puzzles/:id/solutions/export?format=csv|xlsx
func (h *AdminHandler) ExportSolutions(c *gin.Context) {
	puzzleID := c.MustGet("puzzleID").(uint)
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	export, err := h.exporter.ExportSolutions(c.Request.Context(), puzzleID)
	if err != nil {
		handleError(c, "AdminHandler", err)
		return
	}

	filename := fmt.Sprintf("puzzle_%d_%s_solutions", puzzleID, export.Puzzle.PublishDay().Format(dto.DateLayout))

	switch format {
	case "xlsx":
		h.exportXLSX(c, export, filename)
	default:
		h.exportCSV(c, export, filename)
	}
}

var exportHeaders = []string{"ID", "Email", "Ответ", "Верно", "Время (сек)", "Отправлено (UTC)"}

func exportRow(r service.SolutionExportRow) (email, answer, correct, submitted string) {
	correct = "Нет"
	if r.Solution.IsCorrect {
		correct = "Да"
	}
	return sanitizeForExcel(r.Email), sanitizeForExcel(r.Solution.UserAnswer), correct,
		r.Solution.CreatedAt.UTC().Format(time.RFC3339)
}

// exportCSV экспортирует решения в CSV с правильным экранированием спецсимволов
func (h *AdminHandler) exportCSV(c *gin.Context, export *service.SolutionExport, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range export.Rows {
		email, answer, correct, submitted := exportRow(r)
		writer.Write([]string{
			strconv.FormatUint(uint64(r.Solution.ID), 10),
			email,
			answer,
			correct,
			strconv.Itoa(r.Solution.TimeSpent),
			submitted,
		})
	}
}

// exportXLSX экспортирует решения в Excel с использованием StreamWriter
func (h *AdminHandler) exportXLSX(c *gin.Context, export *service.SolutionExport, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Решения"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, name := range exportHeaders {
		headers[i] = name
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range export.Rows {
		rowNum := i + 2 // 1 - заголовки
		email, answer, correct, submitted := exportRow(r)
		row := []interface{}{r.Solution.ID, email, answer, correct, r.Solution.TimeSpent, submitted}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[AdminHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
