// Package dto 提供 HTTP 层数据传输对象
package dto

// PredictRequest 推理请求
type PredictRequest struct {
	DeploymentID string         `json:"deployment_id" binding:"required"`
	Data         any            `json:"data" binding:"required"`
	Options      map[string]any `json:"options"`
}
