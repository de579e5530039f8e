// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/recipe-share/internal/config"
	"github.com/yourusername/recipe-share/internal/models"
)

const (
	SessionCookieName    = "rs_session"
	sessionKeyUser       = "user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	// CSRFHeader はログイン時に発行した CSRF トークンを受け渡すヘッダー名です。
	CSRFHeader = "X-CSRF-Token"
)

var (
	maxSessionLifetime = 12 * time.Hour
	idleTimeout        = 30 * time.Minute
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// UserStore は認証処理が必要とするユーザーの永続化操作です。
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	cfg     *config.Config
	users   UserStore
	limiter Limiter
	now     func() time.Time

	// 存在しないユーザーでのログインにも同じコストの照合をかけるためのハッシュ
	dummyOnce sync.Once
	dummyHash []byte
}

// NewManager は認証マネージャーを作成します。limiter が nil の場合はメモリ上で試行回数を管理します。
func NewManager(cfg *config.Config, users UserStore, limiter Limiter) *Manager {
	if limiter == nil {
		limiter = NewMemoryLimiter()
	}
	return &Manager{
		cfg:     cfg,
		users:   users,
		limiter: limiter,
		now:     time.Now,
	}
}

// startSession はユーザーIDをセッションに保存し、新しい CSRF トークンを返します。
func (m *Manager) startSession(c *gin.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	session := sessions.Default(c)
	now := m.now()
	session.Clear()
	session.Set(sessionKeyUser, userID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)

	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}

// compareDummyPassword は存在しないユーザーに対しても bcrypt の照合を行い、応答時間を揃えます。
func (m *Manager) compareDummyPassword(password string) {
	m.dummyOnce.Do(func() {
		token, err := generateToken()
		if err != nil {
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(token[:32]), m.cfg.BcryptCost)
		if err != nil {
			return
		}
		m.dummyHash = hash
	})
	if m.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(m.dummyHash, []byte(password))
	}
}

func clearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentUser は RequireLogin が設定したログイン中のユーザーを返します。
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}

func readUserID(v interface{}) int64 {
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case float64:
		return int64(id)
	default:
		return 0
	}
}
