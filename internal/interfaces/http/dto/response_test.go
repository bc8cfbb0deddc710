package dto

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "cloudeasyml-api/pkg/errors"
)

func TestNewPageMeta(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		total    int
		want     int
	}{
		{name: "exact pages", page: 1, pageSize: 10, total: 20, want: 2},
		{name: "partial last page", page: 2, pageSize: 10, total: 21, want: 3},
		{name: "empty", page: 1, pageSize: 10, total: 0, want: 0},
		{name: "zero page size", page: 1, pageSize: 0, total: 5, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewPageMeta(tt.page, tt.pageSize, tt.total)
			assert.Equal(t, tt.want, meta.TotalPages)
			assert.Equal(t, tt.total, meta.Total)
		})
	}
}

func TestAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("trace_id", "trace-1")

	AppError(c, apperrors.ErrModelNotFound.WithDetail("model ghost is not registered"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{
		"code": 404,
		"message": "model ghost is not registered",
		"error": {"error_code": "3003"},
		"trace_id": "trace-1"
	}`, w.Body.String())
}
