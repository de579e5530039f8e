package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourusername/recipe-share/internal/database"
)

// ErrUnknownOwner は存在しないユーザーを所有者としてレシピを保存しようとしたときに返されます。
var ErrUnknownOwner = errors.New("recipe owner does not exist")

const recipeSelect = `SELECT r.id, r.title, r.instructions, r.minutes_to_complete, r.user_id,
	u.id, u.username, u.image_url, u.bio
	FROM recipes r
	JOIN users u ON u.id = r.user_id`

// RecipeStore は recipes テーブルを扱います。
type RecipeStore struct {
	db *sql.DB
}

// NewRecipeStore は RecipeStore を作成します。
func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// Create はレシピを検証して保存し、所有者の概要を含めて r を更新します。
func (s *RecipeStore) Create(ctx context.Context, r *Recipe) error {
	if r == nil {
		return fmt.Errorf("recipe is nil")
	}
	if err := r.Validate(); err != nil {
		return err
	}

	var minutes sql.NullInt64
	if r.MinutesToComplete != nil {
		minutes = sql.NullInt64{Int64: int64(*r.MinutesToComplete), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO recipes (title, instructions, minutes_to_complete, user_id) VALUES (?, ?, ?, ?)",
		r.Title, r.Instructions, minutes, r.UserID,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %d", ErrUnknownOwner, r.UserID)
		}
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read recipe id: %w", err)
	}

	saved, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	*r = *saved
	return nil
}

// Get は ID でレシピを取得します。
func (s *RecipeStore) Get(ctx context.Context, id int64) (*Recipe, error) {
	rows, err := s.db.QueryContext(ctx, recipeSelect+" WHERE r.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe: %w", err)
	}
	recipes, err := scanRecipes(rows)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, ErrNotFound
	}
	return &recipes[0], nil
}

// List はすべてのレシピを ID 順に返します。
func (s *RecipeStore) List(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, recipeSelect+" ORDER BY r.id")
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	return scanRecipes(rows)
}

// ListByUser は指定ユーザーのレシピを ID 順に返します。
func (s *RecipeStore) ListByUser(ctx context.Context, userID int64) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, recipeSelect+" WHERE r.user_id = ? ORDER BY r.id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	return scanRecipes(rows)
}

func scanRecipes(rows *sql.Rows) ([]Recipe, error) {
	defer rows.Close()

	recipes := make([]Recipe, 0)
	for rows.Next() {
		var (
			r       Recipe
			owner   User
			minutes sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Instructions, &minutes, &r.UserID,
			&owner.ID, &owner.Username, &owner.ImageURL, &owner.Bio,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		if minutes.Valid {
			m := int(minutes.Int64)
			r.MinutesToComplete = &m
		}
		r.User = &owner
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return recipes, nil
}
