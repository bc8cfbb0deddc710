// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"cloudeasyml-api/internal/domain/entity"
)

// UserResponse 用户响应
type UserResponse struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Role           entity.UserRole `json:"role"`
	MeteredBilling bool            `json:"metered_billing"`
	LastLoginAt    *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UpdateBillingRequest 绑定计量计费账户
type UpdateBillingRequest struct {
	StripeCustomerID         string `json:"stripe_customer_id" binding:"required"`
	StripeSubscriptionItemID string `json:"stripe_subscription_item_id" binding:"required"`
}

// ToUserResponse 实体转换为响应
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		MeteredBilling: u.HasMeteredBilling(),
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
