package models

import "fmt"

// Recipe はユーザーが投稿したレシピです。User は一覧・作成時に所有者の概要として埋め込まれます。
type Recipe struct {
	ID                int64  `json:"id"`
	Title             string `json:"title" validate:"required"`
	Instructions      string `json:"instructions" validate:"required,min=50"`
	MinutesToComplete *int   `json:"minutes_to_complete" validate:"omitempty,min=0"`
	UserID            int64  `json:"-" validate:"required"`
	User              *User  `json:"user,omitempty" validate:"-"`
}

// Validate はレシピの検証ルールを適用します。
func (r *Recipe) Validate() error {
	return validateStruct(r)
}

func (r *Recipe) String() string {
	return fmt.Sprintf("<Recipe %s>", r.Title)
}
