package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind 风险分析错误分类
type ErrorKind string

const (
	ErrInvalidParameter     ErrorKind = "INVALID_PARAMETER"
	ErrInsufficientData     ErrorKind = "INSUFFICIENT_DATA"
	ErrNumericalInstability ErrorKind = "NUMERICAL_INSTABILITY"
	ErrNotFound             ErrorKind = "NOT_FOUND"
	ErrJobNotFound          ErrorKind = "JOB_NOT_FOUND"
	ErrJobNotReady          ErrorKind = "JOB_NOT_READY"
	ErrJobFailed            ErrorKind = "JOB_FAILED"
	ErrTimeout              ErrorKind = "TIMEOUT"
)

// RiskError 携带分类信息的领域错误
// 接口层依据 Kind 映射 HTTP 状态码
type RiskError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *RiskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RiskError) Unwrap() error {
	return e.Cause
}

// Is 支持 errors.Is 按 Kind 匹配
func (e *RiskError) Is(target error) bool {
	var re *RiskError
	if errors.As(target, &re) {
		return e.Kind == re.Kind
	}
	return false
}

// KindOf 提取错误分类，非领域错误返回空串
func KindOf(err error) ErrorKind {
	var re *RiskError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func NewInvalidParameterError(format string, args ...any) *RiskError {
	return &RiskError{Kind: ErrInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientDataError(required, actual int) *RiskError {
	return &RiskError{
		Kind:    ErrInsufficientData,
		Message: fmt.Sprintf("need at least %d observations, got %d", required, actual),
	}
}

func NewNumericalInstabilityError(msg string, cause error) *RiskError {
	return &RiskError{Kind: ErrNumericalInstability, Message: msg, Cause: cause}
}

func NewNotFoundError(format string, args ...any) *RiskError {
	return &RiskError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewJobNotFoundError(jobID string) *RiskError {
	return &RiskError{Kind: ErrJobNotFound, Message: fmt.Sprintf("job %s not found", jobID)}
}

func NewJobNotReadyError(jobID string, status JobStatus) *RiskError {
	return &RiskError{
		Kind:    ErrJobNotReady,
		Message: fmt.Sprintf("job %s is %s, result not ready", jobID, status),
	}
}

func NewJobFailedError(jobID, reason string) *RiskError {
	return &RiskError{Kind: ErrJobFailed, Message: fmt.Sprintf("job %s failed: %s", jobID, reason)}
}

func NewTimeoutError(operation string, budget time.Duration) *RiskError {
	return &RiskError{Kind: ErrTimeout, Message: fmt.Sprintf("%s exceeded budget of %s", operation, budget)}
}
