package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kochabx/gmkit/core/crypto/sm2"
)

// SM2 校验标签
const (
	TagSM2PublicKey  = "sm2_public_key"
	TagSM2PrivateKey = "sm2_private_key"
	TagSM2CipherMode = "sm2_cipher_mode"
)

// sm2Rule 自定义规则及其翻译
type sm2Rule struct {
	tag  string
	fn   validator.Func
	text map[string]string
}

var sm2Rules = []sm2Rule{
	{
		tag: TagSM2PublicKey,
		fn: func(fl validator.FieldLevel) bool {
			return sm2.Default().VerifyPublicKeyHex(fl.Field().String())
		},
		text: map[string]string{
			"en": "{0} must be a valid SM2 public key",
			"zh": "{0}必须是有效的SM2公钥",
		},
	},
	{
		tag: TagSM2PrivateKey,
		fn: func(fl validator.FieldLevel) bool {
			priv, err := sm2.NewPrivateKeyFromHex(fl.Field().String())
			if err != nil {
				return false
			}
			priv.Destroy()
			return true
		},
		text: map[string]string{
			"en": "{0} must be a valid SM2 private key",
			"zh": "{0}必须是有效的SM2私钥",
		},
	},
	{
		tag: TagSM2CipherMode,
		fn: func(fl validator.FieldLevel) bool {
			_, err := sm2.ParseCipherMode(fl.Field().String())
			return err == nil
		},
		text: map[string]string{
			"en": "{0} must be C1C3C2 or C1C2C3",
			"zh": "{0}必须是C1C3C2或C1C2C3",
		},
	},
}

// registerSM2 注册 SM2 自定义校验规则
func (v *validatorImpl) registerSM2() {
	for _, rule := range sm2Rules {
		_ = v.validator.RegisterValidation(rule.tag, rule.fn)
	}
}

// registerSM2Translations 注册 SM2 规则的翻译
func (v *validatorImpl) registerSM2Translations(lang string, trans ut.Translator) {
	for _, rule := range sm2Rules {
		text, ok := rule.text[lang]
		if !ok {
			continue
		}
		tag := rule.tag
		_ = v.validator.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, err := ut.T(tag, fe.Field())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
	}
}
