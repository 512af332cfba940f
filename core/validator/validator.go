package validator

import (
	"context"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/kochabx/gmkit/errors"
)

// validatorImpl 校验器实现，New 返回后只读
type validatorImpl struct {
	validator    *validator.Validate
	uni          *ut.UniversalTranslator
	translators  map[string]ut.Translator
	enabledLangs []string
	defaultLang  string
}

// Validate 全局校验器实例
var Validate = New()

// New 创建校验器，已注册 SM2 规则
func New(opts ...ValidationOption) Validator {
	v := &validatorImpl{
		validator:    validator.New(),
		translators:  make(map[string]ut.Translator),
		enabledLangs: []string{"en", "zh"},
		defaultLang:  "en",
	}

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	for _, opt := range opts {
		opt(v)
	}

	v.registerSM2()
	v.initTranslators()

	return v
}

// initTranslators 初始化翻译器
func (v *validatorImpl) initTranslators() {
	for _, lang := range v.enabledLangs {
		trans, found := v.uni.GetTranslator(lang)
		if !found {
			continue
		}
		switch lang {
		case "en":
			_ = en_translations.RegisterDefaultTranslations(v.validator, trans)
		case "zh":
			_ = zh_translations.RegisterDefaultTranslations(v.validator, trans)
		default:
			continue
		}
		v.translators[lang] = trans
		v.registerSM2Translations(lang, trans)
	}
}

// Struct 校验结构体
func (v *validatorImpl) Struct(s any) error {
	return v.StructCtx(context.Background(), s)
}

// StructCtx 带上下文校验结构体
func (v *validatorImpl) StructCtx(ctx context.Context, s any) error {
	if s == nil {
		return errors.BadRequest("validation target cannot be nil")
	}
	return v.wrap(v.validator.StructCtx(ctx, s), v.defaultLang)
}

// Var 校验单个值
func (v *validatorImpl) Var(field any, tag string) error {
	return v.wrap(v.validator.Var(field, tag), v.defaultLang)
}

// Translate 以 lang 重新翻译
func (v *validatorImpl) Translate(err error, lang string) error {
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	trans := v.translator(lang)
	if trans == nil {
		return err
	}
	out := make(ValidationErrors, len(ve))
	for i, fe := range ve {
		out[i] = fe
		if fe.raw != nil {
			out[i].Message = fe.raw.Translate(trans)
		}
	}
	return out
}

// GetValidator 获取底层的validator实例
func (v *validatorImpl) GetValidator() *validator.Validate {
	return v.validator
}

// translator 返回 lang 的翻译器，不存在时退回默认语言
func (v *validatorImpl) translator(lang string) ut.Translator {
	if trans, ok := v.translators[lang]; ok {
		return trans
	}
	return v.translators[v.defaultLang]
}

// wrap 将 go-playground 的错误转换为 ValidationErrors
func (v *validatorImpl) wrap(err error, lang string) error {
	if err == nil {
		return nil
	}

	var raw validator.ValidationErrors
	if !errors.As(err, &raw) {
		return err
	}

	trans := v.translator(lang)
	out := make(ValidationErrors, 0, len(raw))
	for _, fe := range raw {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: msg,
			raw:     fe,
		})
	}
	return out
}
