package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/cryptic-api/internal/pkg/errors"
)

// handleError сопоставляет ошибки сервисного слоя с HTTP-статусами.
// Неизвестные ошибки логируются, клиенту детали не отдаются.
func handleError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("[%s] ERROR: Internal server error on %s %s: %v", component, c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindError отвечает 400 на некорректное тело запроса
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
}
