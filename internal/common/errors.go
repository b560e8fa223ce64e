package common

import (
	"context"
	"errors"
	"fmt"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// CodeOf 取出错误链上第一个 AppError 的错误码
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Code()
	}
	return ErrCodeInternal
}

// 错误码常量
const (
	ErrCodeUpstreamTransport = "UPSTREAM_TRANSPORT"
	ErrCodeUpstreamStatus    = "UPSTREAM_STATUS"
	ErrCodeRender            = "RENDER_ERROR"
	ErrCodeMissingParameter  = "MISSING_PARAMETER"
	ErrCodeCache             = "CACHE_ERROR"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// UpstreamError GitHub API 调用失败。
// Status 为 0 表示请求根本没有拿到响应 (网络错误、超时、熔断)。
type UpstreamError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

// NewTransportError 网络层失败
func NewTransportError(url string, err error) *UpstreamError {
	return &UpstreamError{URL: url, Err: err}
}

// NewStatusError 非 2xx 响应
func NewStatusError(url string, status int, body string) *UpstreamError {
	return &UpstreamError{URL: url, Status: status, Body: body}
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GitHub API error %d: %s", e.Status, e.Body)
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "GitHub API request timed out"
	}
	return fmt.Sprintf("GitHub API request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTransport 是否为网络层失败
func (e *UpstreamError) IsTransport() bool {
	return e.Status == 0
}

// Code 对应的错误码
func (e *UpstreamError) Code() string {
	if e.IsTransport() {
		return ErrCodeUpstreamTransport
	}
	return ErrCodeUpstreamStatus
}

// IsRetryable 只有网络错误和 5xx 值得重试，超时和取消不重试
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		return false
	}
	return upErr.IsTransport() || upErr.Status >= 500
}
