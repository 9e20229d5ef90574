package service

import (
	"errors"
	"fmt"
)

// 业务错误分类。处理层按 errors.Is 归类映射到响应码，
// 具体原因通过 DetailError 附带的说明文字透出给调用方。
var (
	// ErrValidation 入参校验失败（缺字段、数值越界、状态表不合法）
	ErrValidation = errors.New("validation failed")

	// ErrForbidden 单据存在但不属于请求的组织
	ErrForbidden = errors.New("document belongs to another organization")

	// ErrPrecondition 前置条件不满足（来源单据已取消、超出剩余量、状态被引用等）
	ErrPrecondition = errors.New("precondition failed")
)

// DetailError 携带说明文字的业务错误
type DetailError struct {
	Err     error
	Details string
}

func (e *DetailError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *DetailError) Unwrap() error {
	return e.Err
}

func validationErr(format string, args ...interface{}) error {
	return &DetailError{Err: ErrValidation, Details: fmt.Sprintf(format, args...)}
}

func preconditionErr(format string, args ...interface{}) error {
	return &DetailError{Err: ErrPrecondition, Details: fmt.Sprintf(format, args...)}
}
