package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError 把业务错误翻译成HTTP响应，未识别的错误一律500
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status(), gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	})
}

func parsePagination(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return offset, limit
}
