package handler

import (
	"errors"
	"net/http"

	"github.com/blues/ces/internal/escrow"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// statusFromError 按错误类别映射HTTP状态码
func statusFromError(err error) int {
	switch {
	case errors.Is(err, escrow.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrState):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, escrow.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
