// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired      ErrorCode = "2001"
	CodeTokenInvalid      ErrorCode = "2002"
	CodeTokenMissing      ErrorCode = "2003"
	CodePermissionDenied  ErrorCode = "2004"
	CodeAPIKeyInvalid     ErrorCode = "2005"
	CodeRateLimitExceeded ErrorCode = "2006"

	// 资源错误 (3xxx)
	CodeDeploymentNotFound ErrorCode = "3001"
	CodeAPIKeyNotFound     ErrorCode = "3002"
	CodeModelNotFound      ErrorCode = "3003"
	CodeUserNotFound       ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodePredictionFailed ErrorCode = "4001"
	CodeTrainingFailed   ErrorCode = "4002"
	CodeModelNotTrained  ErrorCode = "4003"
	CodePluginLoadFailed ErrorCode = "4004"
	CodeInvalidSeries    ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeDatabaseError      ErrorCode = "5001"
	CodeCacheError         ErrorCode = "5002"
	CodeMessagingError     ErrorCode = "5003"
	CodeBillingExportError ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is 能匹配预定义错误的副本
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidSeries:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing, CodeAPIKeyInvalid:
		return http.StatusUnauthorized
	case CodeForbidden, CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeDeploymentNotFound, CodeAPIKeyNotFound, CodeModelNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeModelNotTrained:
		return http.StatusConflict
	case CodeTooManyRequests, CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTokenExpired     = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid     = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing     = New(CodeTokenMissing, "token missing")
	ErrPermissionDenied = New(CodePermissionDenied, "permission denied")

	ErrInvalidAPIKey      = New(CodeAPIKeyInvalid, "invalid or expired API key")
	ErrRateLimitExceeded  = New(CodeRateLimitExceeded, "rate limit exceeded")
	ErrDeploymentNotFound = New(CodeDeploymentNotFound, "deployment not found")
	ErrAPIKeyNotFound     = New(CodeAPIKeyNotFound, "API key not found")
	ErrModelNotFound      = New(CodeModelNotFound, "model not found")
	ErrUserNotFound       = New(CodeUserNotFound, "user not found")

	ErrPredictionFailed = New(CodePredictionFailed, "prediction failed")
	ErrTrainingFailed   = New(CodeTrainingFailed, "training failed")
	ErrModelNotTrained  = New(CodeModelNotTrained, "model not trained")
	ErrPluginLoadFailed = New(CodePluginLoadFailed, "plugin load failed")
	ErrInvalidSeries    = New(CodeInvalidSeries, "invalid series")

	ErrBillingExportFailed = New(CodeBillingExportError, "billing export failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// HasCode 检查错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
