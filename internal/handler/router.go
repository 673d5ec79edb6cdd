package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrlongruoi/elegant-global-news/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	AdminGate         middleware.AuthGate
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder // nil可。HTTPステータスメトリクス

	// 記事
	ArticleService ArticleReaderInterface
	AdminService   ArticleWriterInterface

	// 認証
	SessionGate SessionGateInterface

	// /metrics のハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → (ルートごとの RateLimit / AdminGate)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())

	articleHandler := NewArticleHandler(deps.ArticleService)
	adminHandler := NewAdminHandler(deps.AdminService)
	authHandler := NewAuthHandler(deps.SessionGate)

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 公開ルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.ListArticles)
			r.Get("/latest", articleHandler.ListLatest)
			r.Get("/search", articleHandler.SearchArticles)
			r.Get("/{slug}", articleHandler.GetBySlug)
		})

		r.Route("/api/categories", func(r chi.Router) {
			r.Get("/", articleHandler.ListCategories)
			r.Get("/{category}/articles", articleHandler.ListByCategory)
		})
	})

	// --- 管理ルート ---
	// ミドルウェアスタック: AdminGate → RateLimit(AdminWrite)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminGateMiddleware(deps.AdminGate))
		r.Use(deps.RateLimiter.AdminWriteMiddleware())

		r.Route("/api/admin/articles", func(r chi.Router) {
			r.Post("/", adminHandler.CreateArticle)
			r.Patch("/{id}", adminHandler.UpdateArticle)
			r.Delete("/{id}", adminHandler.DeleteArticle)
		})
	})

	// --- 運用ルート ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}
