package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Stage 校验阶段
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// InputError 调用方前置条件不满足（没有文档、数值越界等），不会发起模型调用
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "输入错误: " + e.Reason
	}
	return fmt.Sprintf("输入错误: %s %s", e.Field, e.Reason)
}

// SchemaViolation 输入或输出不符合声明的结构
type SchemaViolation struct {
	Stage      Stage
	Field      string
	Constraint string
	Detail     string
}

func (e *SchemaViolation) Error() string {
	msg := fmt.Sprintf("%s 结构校验失败: 字段 %s 不满足 %s", e.Stage, e.Field, e.Constraint)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// ModelInvocationError 调用模型失败（网络、鉴权、限流）
type ModelInvocationError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ModelInvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("调用模型 %s 失败 (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("调用模型 %s 失败: %v", e.Provider, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// Temporary 是否为可重试的瞬时错误
func (e *ModelInvocationError) Temporary() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		// 网络层错误
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// EmptyResponseError 模型调用成功但没有可用输出
type EmptyResponseError struct {
	Provider string
	Reason   string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("模型 %s 没有返回可用内容: %s", e.Provider, e.Reason)
}

// NewInput 创建 InputError
func NewInput(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// Kind 错误类别，用于响应体和指标标签
func Kind(err error) string {
	var (
		inErr     *InputError
		schemaErr *SchemaViolation
		modelErr  *ModelInvocationError
		emptyErr  *EmptyResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &inErr):
		return "input_error"
	case errors.As(err, &schemaErr):
		return "schema_violation"
	case errors.As(err, &modelErr):
		return "model_invocation_error"
	case errors.As(err, &emptyErr):
		return "empty_response"
	default:
		return "internal_error"
	}
}

// HTTPStatus 错误对应的 HTTP 状态码
func HTTPStatus(err error) int {
	var (
		inErr     *InputError
		schemaErr *SchemaViolation
		modelErr  *ModelInvocationError
		emptyErr  *EmptyResponseError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &inErr):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr):
		if schemaErr.Stage == StageInput {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &modelErr):
		if modelErr.StatusCode == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case errors.As(err, &emptyErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message 展示给用户的失败提示
func Message(err error) string {
	var (
		inErr     *InputError
		schemaErr *SchemaViolation
		modelErr  *ModelInvocationError
		emptyErr  *EmptyResponseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inErr):
		return inErr.Error()
	case errors.As(err, &schemaErr):
		if schemaErr.Stage == StageInput {
			return schemaErr.Error()
		}
		return "AI 返回的结果格式不正确，请重试"
	case errors.As(err, &modelErr):
		if modelErr.StatusCode == http.StatusTooManyRequests {
			return "AI 服务繁忙，请稍后再试"
		}
		return "AI 服务暂时不可用，请稍后再试"
	case errors.As(err, &emptyErr):
		return "AI 没有生成任何内容，请换一份文档或稍后再试"
	default:
		return "服务内部错误"
	}
}

// Field 出错字段（没有则为空）
func Field(err error) string {
	var (
		inErr     *InputError
		schemaErr *SchemaViolation
	)
	switch {
	case errors.As(err, &inErr):
		return inErr.Field
	case errors.As(err, &schemaErr):
		return schemaErr.Field
	default:
		return ""
	}
}
