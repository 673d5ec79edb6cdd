package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrlongruoi/elegant-global-news/internal/middleware"
	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// ArticleWriterInterface は管理ハンドラーが必要とするサービスインターフェース。
type ArticleWriterInterface interface {
	Create(ctx context.Context, draft model.ArticleDraft) (*model.Article, error)
	Update(ctx context.Context, id string, patch model.ArticlePatch) (*model.Article, error)
	Delete(ctx context.Context, id string) error
}

// AdminHandler は記事管理APIのHTTPハンドラー。
// ルーターの管理ゲートを通過したリクエストのみが到達するが、
// 認可の最終判定はサービス層のゲート確認が担う。
type AdminHandler struct {
	service ArticleWriterInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service ArticleWriterInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// createArticleRequest は記事作成リクエストのボディ。
type createArticleRequest struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Author   string `json:"author"`
	ImageURL string `json:"imageUrl"`
	Slug     string `json:"slug"`
}

// updateArticleRequest は記事部分更新リクエストのボディ。
// 省略されたフィールドは更新対象に含まれない。
type updateArticleRequest struct {
	Title    *string `json:"title"`
	Summary  *string `json:"summary"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Author   *string `json:"author"`
	ImageURL *string `json:"imageUrl"`
	Slug     *string `json:"slug"`
}

// CreateArticle は記事を作成する。
// POST /api/admin/articles
func (h *AdminHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディのJSONが不正です"))
		return
	}

	created, err := h.service.Create(r.Context(), model.ArticleDraft{
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		Category: req.Category,
		Author:   req.Author,
		ImageURL: req.ImageURL,
		Slug:     req.Slug,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArticleResponse(*created))
}

// UpdateArticle は記事を部分更新する。
// PATCH /api/admin/articles/{id}
func (h *AdminHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディのJSONが不正です"))
		return
	}

	updated, err := h.service.Update(r.Context(), id, model.ArticlePatch{
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		Category: req.Category,
		Author:   req.Author,
		ImageURL: req.ImageURL,
		Slug:     req.Slug,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(*updated))
}

// DeleteArticle は記事を完全に削除する。
// DELETE /api/admin/articles/{id}
func (h *AdminHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
