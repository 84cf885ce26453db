package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// InitValidator configures gin's validator engine. Call once from
// main before the server starts accepting requests.
func InitValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
}

// ParseValidationError converts validator.ValidationErrors into a
// single human-readable sentence for the canonical error body.
func ParseValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "request body is not valid JSON"
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if trans != nil {
			msgs = append(msgs, e.Translate(trans))
			continue
		}
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateRequest runs after gin's binding has applied the struct-tag
// validation. It checks the constraint that cannot be expressed as a
// static tag, max_tokens bounded by a runtime-configured ceiling, and
// checks again that every message role is known.
func ValidateRequest(req *CanonicalRequest, maxTokensCeiling int) error {
	if req.MaxTokens > maxTokensCeiling {
		return ValidationError(fmt.Sprintf("max_tokens %d exceeds configured ceiling %d", req.MaxTokens, maxTokensCeiling))
	}
	for _, m := range req.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant && m.Role != RoleSystem {
			return ValidationError(fmt.Sprintf("unknown role %q", m.Role))
		}
	}
	return nil
}
