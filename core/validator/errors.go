package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kochabx/gmkit/errors"
)

// FieldError 单个字段的校验失败。不携带字段值，私钥等敏感字段不会经由错误泄露
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`

	raw validator.FieldError
}

// ValidationErrors 一次校验产生的全部字段错误
type ValidationErrors []FieldError

// Error 以 "; " 连接各字段消息
func (ve ValidationErrors) Error() string {
	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, fe.Message)
	}
	return strings.Join(messages, "; ")
}

// Field 按字段名查找
func (ve ValidationErrors) Field(name string) (FieldError, bool) {
	for _, fe := range ve {
		if fe.Field == name {
			return fe, true
		}
	}
	return FieldError{}, false
}

// Tag 返回因 tag 失败的字段
func (ve ValidationErrors) Tag(tag string) ValidationErrors {
	var out ValidationErrors
	for _, fe := range ve {
		if fe.Tag == tag {
			out = append(out, fe)
		}
	}
	return out
}

// Metadata 字段名到消息的映射
func (ve ValidationErrors) Metadata() map[string]string {
	m := make(map[string]string, len(ve))
	for _, fe := range ve {
		m[fe.Field] = fe.Message
	}
	return m
}

// AsError 将校验结果转换为 BadRequest 业务错误，字段消息放入 Metadata
func AsError(err error) error {
	if err == nil {
		return nil
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return errors.BadRequestWithMetadata(ve.Metadata(), "%s", ve.Error()).WithCause(ve)
	}
	var ge *errors.Error
	if errors.As(err, &ge) {
		return ge
	}
	return errors.BadRequest("%s", err.Error()).WithCause(err)
}
