package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourusername/recipe-share/internal/database"
)

var (
	// ErrNotFound は対象のレコードが存在しないことを表します。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername はユーザー名がすでに使われていることを表します。
	ErrDuplicateUsername = errors.New("username already exists")
)

const userColumns = "id, username, password_hash, image_url, bio"

// UserStore は users テーブルを扱います。
type UserStore struct {
	db *sql.DB
}

// NewUserStore は UserStore を作成します。
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create はユーザーを検証して保存し、採番された ID を u に設定します。
func (s *UserStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if u.passwordHash == "" {
		return ErrPasswordNotSet
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, image_url, bio) VALUES (?, ?, ?, ?)",
		u.Username, u.passwordHash, u.ImageURL, u.Bio,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, u.Username)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = id
	return nil
}

// GetByID は ID でユーザーを取得します。
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetByUsername はユーザー名でユーザーを取得します。
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// Delete はユーザーを削除します。所有するレシピは外部キーの ON DELETE CASCADE で消えます。
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.passwordHash, &u.ImageURL, &u.Bio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}
