package validator

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator 校验器，失败时返回 ValidationErrors
type Validator interface {
	Struct(s any) error
	StructCtx(ctx context.Context, s any) error
	// Var 按 tag 校验单个值，如 Var(hex, TagSM2PublicKey)
	Var(field any, tag string) error
	// Translate 以 lang 重新翻译 ValidationErrors，其他错误原样返回
	Translate(err error, lang string) error
	GetValidator() *validator.Validate
}

// ValidationOption 校验器选项
type ValidationOption func(*validatorImpl)

// WithTagName 设置校验标签名
func WithTagName(tagName string) ValidationOption {
	return func(v *validatorImpl) {
		v.validator.SetTagName(tagName)
	}
}

// WithFieldNameTag 以结构体标签（如 json）的名称作为错误中的字段名，
// 标签缺失或为 "-" 时使用 Go 字段名
func WithFieldNameTag(tag string) ValidationOption {
	return func(v *validatorImpl) {
		v.validator.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

// WithTranslator 设置启用的翻译语言，默认 en、zh
func WithTranslator(langs ...string) ValidationOption {
	return func(v *validatorImpl) {
		v.enabledLangs = langs
	}
}

// WithDefaultLanguage 设置错误消息的默认语言
func WithDefaultLanguage(lang string) ValidationOption {
	return func(v *validatorImpl) {
		v.defaultLang = lang
	}
}
