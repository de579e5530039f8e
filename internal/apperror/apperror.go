// Package apperror はアプリケーション共通のエラー種別と、それを JSON レスポンスに変換する処理を提供します。
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/recipe-share/internal/models"
)

// Kind はエラーの分類です。HTTP ステータスへの対応は StatusCode を参照してください。
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindMissingField
	KindDuplicate
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyAttempts
)

// エラーコード
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeMissingField       = "MISSING_FIELD"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error はクライアントに返すコードとメッセージを持つエラーです。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode は Kind に対応する HTTP ステータスを返します。
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindMissingField, KindDuplicate:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyAttempts:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New は Error を作成します。
func New(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation は検証エラーを作成します。
func Validation(message string, err error) *Error {
	return New(KindValidation, CodeValidationFailed, message, err)
}

// MissingField は必須フィールドの欠落を表すエラーを作成します。
func MissingField(field string) *Error {
	return New(KindMissingField, CodeMissingField, "Missing required field: "+field, nil)
}

// Unauthorized は認証エラーを作成します。
func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message, nil)
}

// Forbidden は権限エラーを作成します。
func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message, nil)
}

// TooManyAttempts は試行回数超過エラーを作成します。
func TooManyAttempts() *Error {
	return New(KindTooManyAttempts, CodeTooManyAttempts, "Too many failed attempts. Try again later.", nil)
}

// Internal は内部エラーを作成します。詳細はログにのみ出力されます。
func Internal(err error) *Error {
	return New(KindInternal, CodeInternal, "Internal server error.", err)
}

// InvalidBody はリクエストボディの解析失敗を検証エラーに変換します。
func InvalidBody(err error) *Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return Validation(fmt.Sprintf("Invalid value for field: %s", typeErr.Field), err)
	}
	return Validation("Request body must be a JSON object.", err)
}

// From は任意のエラーを Error に変換します。ドメイン層の既知のエラーは対応する種別になります。
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return Validation(verr.Message, err)
	case errors.Is(err, models.ErrDuplicateUsername):
		return New(KindDuplicate, CodeDuplicateUsername, "Username already exists.", err)
	case errors.Is(err, models.ErrUnknownOwner):
		return New(KindUnauthorized, CodeUnauthorized, "Unauthorized", err)
	case errors.Is(err, models.ErrNotFound):
		return New(KindNotFound, CodeNotFound, "Resource not found.", err)
	default:
		return Internal(err)
	}
}

// Respond はエラーを {"code", "message"} 形式でレスポンスし、以降のハンドラーを中断します。
func Respond(c *gin.Context, err error) {
	appErr := From(err)

	if appErr.Kind == KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}

	c.AbortWithStatusJSON(appErr.StatusCode(), gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
