// Package article は記事操作のビジネスロジックを提供する。
package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
	"github.com/mrlongruoi/elegant-global-news/internal/record"
	"github.com/mrlongruoi/elegant-global-news/internal/repository"
	"github.com/mrlongruoi/elegant-global-news/internal/security"
)

// SessionChecker は書き込み操作の可否判定のインターフェース。
// auth.SessionGateが実装する。
type SessionChecker interface {
	IsAuthenticated() bool
}

// MetricsRecorder は記事操作のメトリクス記録のインターフェース。
// metrics.Collectorが実装する。
type MetricsRecorder interface {
	IncArticleRead(operation string)
	IncArticleWrite(operation string)
	IncSlugConflict()
}

// noopRecorder はメトリクス未設定時のフォールバック。
type noopRecorder struct{}

func (noopRecorder) IncArticleRead(string)  {}
func (noopRecorder) IncArticleWrite(string) {}
func (noopRecorder) IncSlugConflict()       {}

// Service は記事の読み取り・書き込み操作のファサード。
// 書き込み操作はセッションゲートがAuthenticatedを報告している場合のみ
// 実行され、UnknownとAnonymousはいずれもクエリ発行前に拒否される。
type Service struct {
	repo       repository.ArticleRepository
	gate       SessionChecker
	sanitizer  security.ContentSanitizerService
	imageGuard security.ImageURLGuardService
	metrics    MetricsRecorder
}

// NewService はServiceを生成する。metricsがnilの場合は記録しない。
func NewService(
	repo repository.ArticleRepository,
	gate SessionChecker,
	sanitizer security.ContentSanitizerService,
	imageGuard security.ImageURLGuardService,
	metrics MetricsRecorder,
) *Service {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Service{
		repo:       repo,
		gate:       gate,
		sanitizer:  sanitizer,
		imageGuard: imageGuard,
		metrics:    metrics,
	}
}

// ListAll は全記事をpublished_at降順で取得する。
func (s *Service) ListAll(ctx context.Context) ([]model.Article, error) {
	s.metrics.IncArticleRead("list_all")
	return s.repo.ListAll(ctx)
}

// ListByCategory は指定カテゴリの記事を取得する。
// カテゴリ比較は保存値との完全一致で、未知のカテゴリは空のスライスになる。
func (s *Service) ListByCategory(ctx context.Context, category string) ([]model.Article, error) {
	s.metrics.IncArticleRead("list_by_category")
	return s.repo.ListByCategory(ctx, category)
}

// ListLatest は最新n件の記事を取得する。nは正でなければならない。
func (s *Service) ListLatest(ctx context.Context, n int) ([]model.Article, error) {
	if n <= 0 {
		return nil, model.NewValidationError("取得件数は1以上を指定してください")
	}
	s.metrics.IncArticleRead("list_latest")
	return s.repo.ListLatest(ctx, n)
}

// Search はtitle/summary/categoryへの大文字小文字を区別しない部分一致検索を行う。
// 空のクエリは全記事を返す。
func (s *Service) Search(ctx context.Context, query string) ([]model.Article, error) {
	s.metrics.IncArticleRead("search")
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListAll(ctx)
	}
	return s.repo.Search(ctx, query)
}

// GetBySlug は指定スラッグの記事を取得する。見つからない場合は(nil, nil)。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Article, error) {
	s.metrics.IncArticleRead("get_by_slug")
	return s.repo.FindBySlug(ctx, slug)
}

// GetByID は指定IDの記事を取得する。見つからない場合は(nil, nil)。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Article, error) {
	s.metrics.IncArticleRead("get_by_id")
	return s.repo.FindByID(ctx, id)
}

// Create は記事を作成する。
// 検証とサニタイズはクエリ発行前にローカルで完結し、
// 失敗した入力がストレージに到達することはない。
func (s *Service) Create(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
	if !s.gate.IsAuthenticated() {
		return nil, model.NewUnauthorizedError()
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	draft.Content = s.sanitizer.Sanitize(draft.Content)

	created, err := s.repo.Insert(ctx, draft)
	if err != nil {
		if model.ErrorCode(err) == model.ErrCodeSlugConflict {
			s.metrics.IncSlugConflict()
		}
		return nil, err
	}
	s.metrics.IncArticleWrite("create")
	return created, nil
}

// Update は記事を部分更新する。指定されたフィールドのみが送信される。
// 必須フィールドを空文字列にする指定は検証エラーになる。
func (s *Service) Update(ctx context.Context, id string, patch model.ArticlePatch) (*model.Article, error) {
	if !s.gate.IsAuthenticated() {
		return nil, model.NewUnauthorizedError()
	}
	if patch.IsEmpty() {
		return nil, model.NewValidationError("更新するフィールドが指定されていません")
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.Content != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Content)
		patch.Content = &sanitized
	}

	updated, err := s.repo.Update(ctx, id, record.PatchToStorage(patch))
	if err != nil {
		if model.ErrorCode(err) == model.ErrCodeSlugConflict {
			s.metrics.IncSlugConflict()
		}
		return nil, err
	}
	s.metrics.IncArticleWrite("update")
	return updated, nil
}

// Delete は記事を完全に削除する。対象が存在しない場合はARTICLE_NOT_FOUND。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.gate.IsAuthenticated() {
		return model.NewUnauthorizedError()
	}
	if strings.TrimSpace(id) == "" {
		return model.NewValidationError("記事IDを指定してください")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.IncArticleWrite("delete")
	return nil
}

// validateDraft は記事作成入力を検証する。
// contentのみ任意で、他のフィールドはすべて必須。
func (s *Service) validateDraft(draft model.ArticleDraft) error {
	required := []struct {
		name  string
		value string
	}{
		{"title", draft.Title},
		{"summary", draft.Summary},
		{"category", draft.Category},
		{"author", draft.Author},
		{"image_url", draft.ImageURL},
		{"slug", draft.Slug},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return model.NewValidationError(fmt.Sprintf("%sは必須です", f.name))
		}
	}
	if !model.IsValidCategory(draft.Category) {
		return model.NewValidationError(fmt.Sprintf("未知のカテゴリです: %s", draft.Category))
	}
	if err := s.imageGuard.ValidateURL(draft.ImageURL); err != nil {
		return model.NewValidationError(fmt.Sprintf("画像URLが不正です: %v", err))
	}
	return nil
}

// validatePatch は部分更新入力を検証する。
// 指定されたフィールドには作成時と同じ規則を適用する
// （content以外の必須フィールドは空にできない）。
func (s *Service) validatePatch(patch model.ArticlePatch) error {
	required := []struct {
		name  string
		value *string
	}{
		{"title", patch.Title},
		{"summary", patch.Summary},
		{"category", patch.Category},
		{"author", patch.Author},
		{"image_url", patch.ImageURL},
		{"slug", patch.Slug},
	}
	for _, f := range required {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return model.NewValidationError(fmt.Sprintf("%sを空にすることはできません", f.name))
		}
	}
	if patch.Category != nil && !model.IsValidCategory(*patch.Category) {
		return model.NewValidationError(fmt.Sprintf("未知のカテゴリです: %s", *patch.Category))
	}
	if patch.ImageURL != nil {
		if err := s.imageGuard.ValidateURL(*patch.ImageURL); err != nil {
			return model.NewValidationError(fmt.Sprintf("画像URLが不正です: %v", err))
		}
	}
	return nil
}
