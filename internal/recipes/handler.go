// Package recipes はレシピの一覧・作成 API を提供します。
package recipes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/recipe-share/internal/apperror"
	"github.com/yourusername/recipe-share/internal/auth"
	"github.com/yourusername/recipe-share/internal/models"
)

// Store はレシピの永続化操作です。
type Store interface {
	Create(ctx context.Context, r *models.Recipe) error
	List(ctx context.Context) ([]models.Recipe, error)
}

// Handler は /recipes のハンドラーをまとめた構造体です。
type Handler struct {
	store Store
}

// NewHandler は Handler を作成します。
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type createRequest struct {
	Title             *string `json:"title"`
	Instructions      *string `json:"instructions"`
	MinutesToComplete *int    `json:"minutes_to_complete"`
}

// Index は GET /recipes のハンドラーです。所有者の概要を含めた全レシピを返します。
func (h *Handler) Index(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create は POST /recipes のハンドラーです。ログイン中のユーザーを所有者として保存します。
func (h *Handler) Create(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apperror.Respond(c, apperror.Unauthorized(apperror.CodeUnauthorized, "Unauthorized"))
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, apperror.InvalidBody(err))
		return
	}
	if req.Title == nil {
		apperror.Respond(c, apperror.MissingField("title"))
		return
	}
	if req.Instructions == nil {
		apperror.Respond(c, apperror.MissingField("instructions"))
		return
	}

	recipe := &models.Recipe{
		Title:             *req.Title,
		Instructions:      *req.Instructions,
		MinutesToComplete: req.MinutesToComplete,
		UserID:            user.ID,
	}
	if err := h.store.Create(c.Request.Context(), recipe); err != nil {
		apperror.Respond(c, err)
		return
	}

	zerolog.Ctx(c.Request.Context()).Info().
		Int64("recipe_id", recipe.ID).
		Int64("user_id", user.ID).
		Msg("recipe created")
	c.JSON(http.StatusCreated, recipe)
}
