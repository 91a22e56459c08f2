package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam проверяет числовой идентификатор из пути (например, :id головоломки)
// и кладет его в контекст как uint. Ноль отклоняется: идентификаторы записей начинаются с 1.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":      fmt.Sprintf("Invalid %s: must be a positive integer", paramName),
				"error_type": "invalid_param",
			})
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
