// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mrlongruoi/elegant-global-news/internal/middleware"
	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// defaultLatestCount は最新記事一覧のデフォルト取得件数。
const defaultLatestCount = 5

// ArticleReaderInterface は公開記事ハンドラーが必要とするサービスインターフェース。
type ArticleReaderInterface interface {
	ListAll(ctx context.Context) ([]model.Article, error)
	ListByCategory(ctx context.Context, category string) ([]model.Article, error)
	ListLatest(ctx context.Context, n int) ([]model.Article, error)
	Search(ctx context.Context, query string) ([]model.Article, error)
	GetBySlug(ctx context.Context, slug string) (*model.Article, error)
}

// ArticleHandler は公開記事APIのHTTPハンドラー。
type ArticleHandler struct {
	service ArticleReaderInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleReaderInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// --- レスポンス型 ---

// articleResponse は記事のAPIレスポンス。
// フロントエンドが扱うcamelCase形式で返す。
type articleResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content,omitempty"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"imageUrl"`
	Slug        string    `json:"slug"`
	PublishedAt time.Time `json:"publishedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// articleListResponse は記事一覧のAPIレスポンス。
type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
}

func toArticleResponse(a model.Article) articleResponse {
	return articleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Summary:     a.Summary,
		Content:     a.Content,
		Category:    a.Category,
		Author:      a.Author,
		ImageURL:    a.ImageURL,
		Slug:        a.Slug,
		PublishedAt: a.PublishedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toArticleListResponse(articles []model.Article) articleListResponse {
	out := make([]articleResponse, len(articles))
	for i, a := range articles {
		out[i] = toArticleResponse(a)
	}
	return articleListResponse{Articles: out}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// ListArticles は全記事を公開日時の降順で返す。
// GET /api/articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListAll(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleListResponse(articles))
}

// ListLatest は最新n件の記事を返す。
// GET /api/articles/latest?n=5
func (h *ArticleHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	n := defaultLatestCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError("nは整数で指定してください"))
			return
		}
		n = parsed
	}

	articles, err := h.service.ListLatest(r.Context(), n)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleListResponse(articles))
}

// SearchArticles はタイトル・概要・カテゴリへの部分一致検索を行う。
// GET /api/articles/search?q=keyword
func (h *ArticleHandler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleListResponse(articles))
}

// ListByCategory は指定カテゴリの記事一覧を返す。
// GET /api/categories/{category}/articles
func (h *ArticleHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	articles, err := h.service.ListByCategory(r.Context(), category)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleListResponse(articles))
}

// GetBySlug はスラッグで記事を1件取得する。
// GET /api/articles/{slug}
// 存在しないスラッグは404（エラーではなく未存在として扱う）。
func (h *ArticleHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	article, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if article == nil {
		middleware.WriteError(w, model.NewArticleNotFoundError(slug))
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(*article))
}

// ListCategories はカテゴリの固定セットを返す。
// GET /api/categories
func (h *ArticleHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": model.Categories})
}
