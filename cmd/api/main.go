// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/recipe-share/internal/auth"
	"github.com/yourusername/recipe-share/internal/config"
	"github.com/yourusername/recipe-share/internal/database"
	"github.com/yourusername/recipe-share/internal/logger"
	"github.com/yourusername/recipe-share/internal/models"
	"github.com/yourusername/recipe-share/internal/recipes"
)

const (
	serviceName    = "recipe-share-api"
	serviceVersion = "0.1.0"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logger.New("info", "console", os.Stderr)
		bootLogger.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	limiter, closeLimiter, err := setupLimiter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer closeLimiter()

	router := newRouter(cfg, db, limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// サーバーの起動
	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exiting")
}

// setupLimiter は REDIS_URL が設定されていれば Redis、なければメモリ上のログイン試行制限を返します。
func setupLimiter(cfg *config.Config) (auth.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		return auth.NewMemoryLimiter(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	limiter, err := auth.NewRedisLimiterFromURL(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return limiter, func() { _ = limiter.Close() }, nil
}

// newRouter はミドルウェアとルーティングを設定した Gin エンジンを返します。
func newRouter(cfg *config.Config, db *sql.DB, limiter auth.Limiter, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(logger.RequestLogger(log), gin.Recovery())

	// セッションストアの設定（クッキー署名鍵は必須）
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		auth.CSRFHeader,
		logger.RequestIDHeader,
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{auth.CSRFHeader, logger.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, db, limiter)
	return router
}

// healthHandler はヘルスチェックエンドポイントのハンドラーを返します。
func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"service": serviceName,
				"version": serviceVersion,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	}
}

// setupRoutes は認証・レシピ API の配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, db *sql.DB, limiter auth.Limiter) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", healthHandler(db))

	authManager := auth.NewManager(cfg, models.NewUserStore(db), limiter)
	recipeHandler := recipes.NewHandler(models.NewRecipeStore(db))

	// サインアップ・ログイン時はセッション未生成なので CSRF 検証は不要
	router.POST("/signup", authManager.Signup)
	router.POST("/login", authManager.Login)

	protected := router.Group("")
	protected.Use(authManager.RequireLogin(), authManager.VerifyCSRF())
	{
		protected.GET("/check_session", authManager.CheckSession)
		protected.DELETE("/logout", authManager.Logout)
		protected.GET("/recipes", recipeHandler.Index)
		protected.POST("/recipes", recipeHandler.Create)
	}
}
