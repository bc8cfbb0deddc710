// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/interfaces/http/dto"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/logger"
)

// HandleError 将错误映射为统一错误响应
// 非 AppError 一律按 500 处理，细节只写日志
func HandleError(c *gin.Context, err error) {
	if !apperrors.IsAppError(err) {
		logger.Error(c.Request.Context(), "unhandled error", err, "path", c.FullPath())
		dto.InternalError(c, "internal server error")
		return
	}

	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath(), "error_code", string(appErr.Code))
	}

	dto.AppError(c, appErr)
}

// parseDate 解析 RFC3339 或 YYYY-MM-DD 日期，空串返回 nil
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
