package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// AuthGate は管理操作の可否判定のインターフェース。
// auth.SessionGateが実装する。
type AuthGate interface {
	IsAuthenticated() bool
}

// NewAdminGateMiddleware は管理ルートへのアクセスを認証状態で制限する
// ミドルウェアを返す。UnknownとAnonymousはいずれも401で拒否される
// （初回セッション確認の解決前に書き込みを通さない）。
func NewAdminGateMiddleware(gate AuthGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.IsAuthenticated() {
				slog.Warn("admin request rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteError(w, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
