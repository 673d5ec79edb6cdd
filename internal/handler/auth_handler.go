package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mrlongruoi/elegant-global-news/internal/middleware"
	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// SessionGateInterface は認証ハンドラーが必要とするセッションゲートのインターフェース。
type SessionGateInterface interface {
	Login(ctx context.Context, email, secret string) (bool, error)
	Logout(ctx context.Context) error
	Snapshot() (model.AuthState, *model.Session)
	IsLoading() bool
}

// AuthHandler は認証APIのHTTPハンドラー。
type AuthHandler struct {
	gate SessionGateInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(gate SessionGateInterface) *AuthHandler {
	return &AuthHandler{gate: gate}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// meResponse は現在のセッション状態のレスポンス。
// isLoadingを含めることで、呼び出し側は初回確認の解決前に
// 未認証と誤判定してリダイレクトするのを避けられる。
type meResponse struct {
	State           string `json:"state"`
	IsLoading       bool   `json:"isLoading"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Email           string `json:"email,omitempty"`
}

// Login は資格情報を検証する。
// POST /auth/login
// 成功してもセッション状態の遷移はプロバイダーの通知が駆動するため、
// レスポンスは検証結果のみを表す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディのJSONが不正です"))
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, model.NewValidationError("メールアドレスとパスワードは必須です"))
		return
	}

	ok, err := h.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "INVALID_CREDENTIALS",
			Message:  "メールアドレスまたはパスワードが正しくありません。",
			Category: "auth",
			Action:   "入力内容を確認して再度お試しください。",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout はサインアウトを要求する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のセッション状態を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state, session := h.gate.Snapshot()

	resp := meResponse{
		State:           string(state),
		IsLoading:       state == model.AuthStateUnknown,
		IsAuthenticated: state == model.AuthStateAuthenticated,
	}
	if session != nil {
		resp.Email = session.Email
	}
	writeJSON(w, http.StatusOK, resp)
}
