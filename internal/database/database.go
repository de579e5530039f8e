// Package database は SQLite への接続とスキーマの初期化を提供します。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memoryDSN = ":memory:"

// 接続ごとに適用するプラグマ。外部キー制約はデフォルト無効なので必ず有効にする。
var connectionPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE CHECK (length(username) > 0),
		password_hash TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL CHECK (length(title) > 0),
		instructions TEXT NOT NULL CHECK (length(instructions) >= 50),
		minutes_to_complete INTEGER,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipes_user_id ON recipes(user_id)`,
}

// Open は SQLite データベースを開き、疎通確認まで行います。
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}

	// インメモリDBは接続ごとに別物になるため、接続を1本に固定する
	if strings.HasPrefix(path, memoryDSN) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate はスキーマを作成します。何度実行しても安全です。
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation は err が UNIQUE 制約違反かどうかを判定します。
func IsUniqueViolation(err error) bool {
	return hasConstraintCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE")
}

// IsForeignKeyViolation は err が外部キー制約違反かどうかを判定します。
func IsForeignKeyViolation(err error) bool {
	return hasConstraintCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY")
}

func hasConstraintCode(err error, extended int, marker string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == extended {
		return true
	}
	// 拡張エラーコードが無効な接続では基本コードとメッセージで判定する
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), marker)
}

func buildDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(connectionPragmas, "&")
}
