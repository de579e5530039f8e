package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError は検証ルールに違反したフィールドを表します。
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ルール違反時のメッセージ。キーは "<jsonフィールド名>.<タグ>"。
var ruleMessages = map[string]string{
	"username.required":       "Username must be present.",
	"title.required":          "Title must be present.",
	"instructions.required":   "Instructions must be at least 50 characters long.",
	"instructions.min":        "Instructions must be at least 50 characters long.",
	"minutes_to_complete.min": "Minutes to complete must be zero or greater.",
	"UserID.required":         "Recipe must belong to a user.",
}

// validator.Validate は構造体ごとの解析結果をキャッシュするため、パッケージで1つだけ持つ。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct は最初に違反したフィールドを ValidationError として返します。
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	msg, ok := ruleMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s failed the %s rule.", fe.Field(), fe.Tag())
	}
	return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Message: msg}
}
