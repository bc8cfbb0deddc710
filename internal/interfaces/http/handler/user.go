// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/internal/interfaces/http/middleware"
	"cloudeasyml-api/pkg/logger"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
	}
}

// GetMe 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user info")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// UpdateBilling 绑定计量计费账户，绑定后用量会导出到 Stripe
// @Summary 绑定计费账户
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpdateBillingRequest true "Stripe 账户"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Router /v1/users/me/billing [put]
func (h *UserHandler) UpdateBilling(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req dto.UpdateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.userRepo.UpdateBilling(ctx, userID, req.StripeCustomerID, req.StripeSubscriptionItemID); err != nil {
		logger.Error(ctx, "failed to update user billing", err)
		dto.InternalError(c, "failed to update billing")
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		dto.InternalError(c, "failed to get user info")
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}
