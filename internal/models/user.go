// Package models はユーザーとレシピのエンティティ、検証ルール、SQLite 上のストアを提供します。
package models

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordHashUnreadable はパスワードハッシュを読み出そうとしたときに返されます。
	ErrPasswordHashUnreadable = errors.New("password hashes cannot be accessed directly")
	// ErrPasswordNotSet はパスワード未設定のユーザーを保存しようとしたときに返されます。
	ErrPasswordNotSet = errors.New("password has not been set")
)

// User はアカウントを表します。パスワードは書き込み専用です。
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required"`
	ImageURL string `json:"image_url"`
	Bio      string `json:"bio"`

	passwordHash string
}

// NewUser はパスワード未設定のユーザーを作成します。
func NewUser(username, imageURL, bio string) *User {
	return &User{
		Username: username,
		ImageURL: imageURL,
		Bio:      bio,
	}
}

// SetPassword は平文パスワードを bcrypt でハッシュ化して保持します。
// cost が 0 以下の場合は bcrypt.DefaultCost を使います。
func (u *User) SetPassword(password string, cost int) error {
	if password == "" {
		return &ValidationError{Field: "password", Rule: "required", Message: "Password must be present."}
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return &ValidationError{Field: "password", Rule: "max", Message: "Password must be at most 72 bytes."}
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.passwordHash = string(hash)
	return nil
}

// PasswordHash は常にエラーを返します。ハッシュは外部に公開しません。
func (u *User) PasswordHash() (string, error) {
	return "", ErrPasswordHashUnreadable
}

// Authenticate は平文パスワードが保持しているハッシュと一致するかを返します。
func (u *User) Authenticate(password string) bool {
	if u == nil || u.passwordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}

// Validate はユーザーの検証ルールを適用します。
func (u *User) Validate() error {
	return validateStruct(u)
}

func (u *User) String() string {
	return fmt.Sprintf("<User %s>", u.Username)
}
