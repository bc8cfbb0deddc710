// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/internal/interfaces/http/middleware"
	apperrors "cloudeasyml-api/pkg/errors"
)

// UsageHandler 用量处理器
type UsageHandler struct {
	tracker *billing.UsageTracker
}

// NewUsageHandler 创建用量处理器
func NewUsageHandler(tracker *billing.UsageTracker) *UsageHandler {
	return &UsageHandler{tracker: tracker}
}

// GetUsage 当前用户的成本汇总
// @Summary 成本汇总
// @Tags Usage
// @Produce json
// @Param start_date query string false "起始时间 RFC3339 或 YYYY-MM-DD"
// @Param end_date query string false "结束时间 RFC3339 或 YYYY-MM-DD"
// @Success 200 {object} dto.Response[billing.CostSummary]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/usage [get]
func (h *UsageHandler) GetUsage(c *gin.Context) {
	start, end, ok := bindPeriod(c)
	if !ok {
		return
	}

	summary, err := h.tracker.GetUserCosts(c.Request.Context(), middleware.GetUserID(c), start, end)
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.Success(c, summary)
}

// ListRecords 分页列出用量记录
// @Summary 用量明细
// @Tags Usage
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.UsageRecordResponse]
// @Router /v1/usage/records [get]
func (h *UsageHandler) ListRecords(c *gin.Context) {
	start, end, ok := bindPeriod(c)
	if !ok {
		return
	}
	page := dto.BindPage(c)

	result, err := h.tracker.ListRecords(c.Request.Context(), middleware.GetUserID(c), start, end, page.Pagination())
	if err != nil {
		HandleError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToUsageRecordResponses(result.Items), dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

func bindPeriod(c *gin.Context) (start, end *time.Time, ok bool) {
	start, err := parseDate(c.Query("start_date"))
	if err != nil {
		HandleError(c, apperrors.ErrInvalidParam.WithDetail("invalid start_date"))
		return nil, nil, false
	}
	end, err = parseDate(c.Query("end_date"))
	if err != nil {
		HandleError(c, apperrors.ErrInvalidParam.WithDetail("invalid end_date"))
		return nil, nil, false
	}
	return start, end, true
}
