package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/recipe-share/internal/apperror"
	"github.com/yourusername/recipe-share/internal/models"
)

type signupRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	ImageURL string  `json:"image_url"`
	Bio      string  `json:"bio"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup は POST /signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, apperror.InvalidBody(err))
		return
	}
	if req.Username == nil {
		apperror.Respond(c, apperror.MissingField("username"))
		return
	}
	if req.Password == nil {
		apperror.Respond(c, apperror.MissingField("password"))
		return
	}

	user := models.NewUser(*req.Username, req.ImageURL, req.Bio)
	if err := user.Validate(); err != nil {
		apperror.Respond(c, err)
		return
	}
	if err := user.SetPassword(*req.Password, m.cfg.BcryptCost); err != nil {
		apperror.Respond(c, err)
		return
	}
	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) {
			logger.Info().Str("username", user.Username).Msg("signup rejected: username taken")
		}
		apperror.Respond(c, err)
		return
	}

	token, err := m.startSession(c, user.ID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user signed up")
	c.Header(CSRFHeader, token)
	c.JSON(http.StatusCreated, user)
}

// Login は POST /login のハンドラーです。
// 失敗時はユーザー名とパスワードのどちらが誤っていたかを区別せずに 401 を返します。
func (m *Manager) Login(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)
	ip := c.ClientIP()

	retryAfter, err := m.limiter.Check(ctx, ip)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if retryAfter > 0 {
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds())+1, 10))
		apperror.Respond(c, apperror.TooManyAttempts())
		return
	}

	var req loginRequest
	bindErr := c.ShouldBindJSON(&req)

	var user *models.User
	if bindErr == nil && req.Username != "" {
		user, err = m.users.GetByUsername(ctx, req.Username)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			apperror.Respond(c, err)
			return
		}
	}

	if user == nil {
		m.compareDummyPassword(req.Password)
	}
	if user == nil || !user.Authenticate(req.Password) {
		remaining, err := m.limiter.RecordFailure(ctx, ip)
		if err != nil {
			apperror.Respond(c, err)
			return
		}
		logger.Warn().
			Str("username", req.Username).
			Str("client_ip", ip).
			Int("remaining_attempts", remaining).
			Msg("login failed")
		apperror.Respond(c, apperror.Unauthorized(apperror.CodeInvalidCredentials, "Invalid username or password"))
		return
	}

	if err := m.limiter.Reset(ctx, ip); err != nil {
		logger.Warn().Err(err).Str("client_ip", ip).Msg("failed to reset login attempts")
	}

	token, err := m.startSession(c, user.ID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user logged in")
	c.Header(CSRFHeader, token)
	c.JSON(http.StatusOK, user)
}

// Logout は DELETE /logout のハンドラーです。RequireLogin の後に登録してください。
func (m *Manager) Logout(c *gin.Context) {
	if err := clearSession(c); err != nil {
		apperror.Respond(c, err)
		return
	}
	if user, ok := CurrentUser(c); ok {
		zerolog.Ctx(c.Request.Context()).Info().Int64("user_id", user.ID).Msg("user logged out")
	}
	c.Status(http.StatusNoContent)
}

// CheckSession は GET /check_session のハンドラーです。RequireLogin の後に登録してください。
func (m *Manager) CheckSession(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		apperror.Respond(c, apperror.Unauthorized(apperror.CodeUnauthorized, "Unauthorized"))
		return
	}
	c.JSON(http.StatusOK, user)
}
