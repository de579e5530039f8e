package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/recipe-share/internal/apperror"
	"github.com/yourusername/recipe-share/internal/models"
)

// RequireLogin はセッションを検証し、ログイン中のユーザーをコンテキストに載せるミドルウェアを返します。
// セッションが期限切れ、またはユーザーが削除済みの場合はセッションを破棄して 401 を返します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := readUserID(session.Get(sessionKeyUser))
		if userID == 0 {
			apperror.Respond(c, apperror.Unauthorized(apperror.CodeUnauthorized, "Unauthorized"))
			return
		}

		now := m.now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime {
			_ = clearSession(c)
			apperror.Respond(c, apperror.Unauthorized("SESSION_EXPIRED", "Session has expired. Please log in again."))
			return
		}

		if lastActive.IsZero() || now.Sub(lastActive) > idleTimeout {
			_ = clearSession(c)
			apperror.Respond(c, apperror.Unauthorized("SESSION_IDLE_TIMEOUT", "Session timed out due to inactivity. Please log in again."))
			return
		}

		user, err := m.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				_ = clearSession(c)
				apperror.Respond(c, apperror.Unauthorized(apperror.CodeUnauthorized, "Unauthorized"))
				return
			}
			apperror.Respond(c, err)
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		_ = session.Save()
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// VerifyCSRF は X-CSRF-Token ヘッダーを検証するミドルウェアです。
// 設定で無効化されている場合は何もしません。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.cfg.CSRFEnabled || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			apperror.Respond(c, apperror.Forbidden("CSRF_MISSING", "CSRF token has not been issued."))
			return
		}

		received := c.GetHeader(CSRFHeader)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			apperror.Respond(c, apperror.Forbidden("CSRF_INVALID", "CSRF token does not match."))
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
