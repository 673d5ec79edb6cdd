package article

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// mockArticleRepo はArticleRepositoryのテスト用実装。
type mockArticleRepo struct {
	listAllFunc        func(ctx context.Context) ([]model.Article, error)
	listByCategoryFunc func(ctx context.Context, category string) ([]model.Article, error)
	listLatestFunc     func(ctx context.Context, n int) ([]model.Article, error)
	searchFunc         func(ctx context.Context, query string) ([]model.Article, error)
	findBySlugFunc     func(ctx context.Context, slug string) (*model.Article, error)
	findByIDFunc       func(ctx context.Context, id string) (*model.Article, error)
	insertFunc         func(ctx context.Context, draft model.ArticleDraft) (*model.Article, error)
	updateFunc         func(ctx context.Context, id string, fields map[string]any) (*model.Article, error)
	deleteFunc         func(ctx context.Context, id string) error

	insertCalls int
	updateCalls int
	deleteCalls int
}

func (m *mockArticleRepo) ListAll(ctx context.Context) ([]model.Article, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockArticleRepo) ListByCategory(ctx context.Context, category string) ([]model.Article, error) {
	if m.listByCategoryFunc != nil {
		return m.listByCategoryFunc(ctx, category)
	}
	return nil, nil
}

func (m *mockArticleRepo) ListLatest(ctx context.Context, n int) ([]model.Article, error) {
	if m.listLatestFunc != nil {
		return m.listLatestFunc(ctx, n)
	}
	return nil, nil
}

func (m *mockArticleRepo) Search(ctx context.Context, query string) ([]model.Article, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return nil, nil
}

func (m *mockArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	if m.findBySlugFunc != nil {
		return m.findBySlugFunc(ctx, slug)
	}
	return nil, nil
}

func (m *mockArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockArticleRepo) Insert(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
	m.insertCalls++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, draft)
	}
	return &model.Article{ID: "generated-id"}, nil
}

func (m *mockArticleRepo) Update(ctx context.Context, id string, fields map[string]any) (*model.Article, error) {
	m.updateCalls++
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, fields)
	}
	return &model.Article{ID: id}, nil
}

func (m *mockArticleRepo) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

// fakeGate はSessionCheckerのテスト用実装。
type fakeGate struct {
	authenticated bool
}

func (g *fakeGate) IsAuthenticated() bool { return g.authenticated }

// passthroughSanitizer は入力をそのまま返すサニタイザー。
type passthroughSanitizer struct {
	calls []string
}

func (s *passthroughSanitizer) Sanitize(rawHTML string) string {
	s.calls = append(s.calls, rawHTML)
	return rawHTML
}

// fakeImageGuard はImageURLGuardServiceのテスト用実装。
type fakeImageGuard struct {
	validateFunc func(rawURL string) error
}

func (g *fakeImageGuard) ValidateURL(rawURL string) error {
	if g.validateFunc != nil {
		return g.validateFunc(rawURL)
	}
	return nil
}

func (g *fakeImageGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func validDraft() model.ArticleDraft {
	return model.ArticleDraft{
		Title:    "世界経済の見通し",
		Summary:  "来年度の世界経済の概況",
		Content:  "<p>本文</p>",
		Category: "Business",
		Author:   "山田太郎",
		ImageURL: "https://images.example.com/economy.jpg",
		Slug:     "world-economy-outlook",
	}
}

func newTestService(repo *mockArticleRepo, gate *fakeGate) (*Service, *passthroughSanitizer) {
	sanitizer := &passthroughSanitizer{}
	return NewService(repo, gate, sanitizer, &fakeImageGuard{}, nil), sanitizer
}

func TestService_CreateRejectedWhenNotAuthenticated(t *testing.T) {
	repo := &mockArticleRepo{}
	svc, _ := newTestService(repo, &fakeGate{authenticated: false})

	_, err := svc.Create(context.Background(), validDraft())
	if model.ErrorCode(err) != model.ErrCodeUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
	// ゲート拒否はストレージへの問い合わせ前に完結する
	if repo.insertCalls != 0 {
		t.Error("repository must not be reached when the gate rejects")
	}
}

func TestService_WritesRejectedBeforeIO(t *testing.T) {
	repo := &mockArticleRepo{}
	svc, _ := newTestService(repo, &fakeGate{authenticated: false})
	ctx := context.Background()

	if _, err := svc.Update(ctx, "some-id", model.ArticlePatch{Title: ptr("t")}); model.ErrorCode(err) != model.ErrCodeUnauthorized {
		t.Errorf("update: expected unauthorized, got %v", err)
	}
	if err := svc.Delete(ctx, "some-id"); model.ErrorCode(err) != model.ErrCodeUnauthorized {
		t.Errorf("delete: expected unauthorized, got %v", err)
	}
	if repo.updateCalls != 0 || repo.deleteCalls != 0 {
		t.Error("repository must not be reached when the gate rejects")
	}
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *model.ArticleDraft)
	}{
		{"タイトルが空", func(d *model.ArticleDraft) { d.Title = "" }},
		{"概要が空", func(d *model.ArticleDraft) { d.Summary = "  " }},
		{"カテゴリが空", func(d *model.ArticleDraft) { d.Category = "" }},
		{"著者が空", func(d *model.ArticleDraft) { d.Author = "" }},
		{"画像URLが空", func(d *model.ArticleDraft) { d.ImageURL = "" }},
		{"スラッグが空", func(d *model.ArticleDraft) { d.Slug = "" }},
		{"未知のカテゴリ", func(d *model.ArticleDraft) { d.Category = "Sports" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockArticleRepo{}
			svc, _ := newTestService(repo, &fakeGate{authenticated: true})

			draft := validDraft()
			tt.mutate(&draft)

			_, err := svc.Create(context.Background(), draft)
			if model.ErrorCode(err) != model.ErrCodeValidationFailed {
				t.Errorf("expected validation failure, got %v", err)
			}
			if repo.insertCalls != 0 {
				t.Error("invalid input must not reach storage")
			}
		})
	}
}

func TestService_CreateContentOptional(t *testing.T) {
	repo := &mockArticleRepo{}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	draft := validDraft()
	draft.Content = ""

	if _, err := svc.Create(context.Background(), draft); err != nil {
		t.Errorf("content must be optional, got %v", err)
	}
}

func TestService_CreateRejectsUnsafeImageURL(t *testing.T) {
	repo := &mockArticleRepo{}
	guard := &fakeImageGuard{
		validateFunc: func(string) error { return errors.New("blocked host") },
	}
	svc := NewService(repo, &fakeGate{authenticated: true}, &passthroughSanitizer{}, guard, nil)

	_, err := svc.Create(context.Background(), validDraft())
	if model.ErrorCode(err) != model.ErrCodeValidationFailed {
		t.Errorf("expected validation failure, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Error("unsafe image URL must not reach storage")
	}
}

func TestService_CreateSanitizesContent(t *testing.T) {
	repo := &mockArticleRepo{
		insertFunc: func(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
			if strings.Contains(draft.Content, "script") {
				t.Errorf("unsanitized content reached storage: %q", draft.Content)
			}
			return &model.Article{ID: "id-1", Content: draft.Content}, nil
		},
	}
	sanitizer := &passthroughSanitizer{}
	guard := &fakeImageGuard{}
	svc := NewService(repo, &fakeGate{authenticated: true}, &stripScriptSanitizer{inner: sanitizer}, guard, nil)

	draft := validDraft()
	draft.Content = `<p>x</p><script>alert(1)</script>`

	if _, err := svc.Create(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sanitizer.calls) != 1 {
		t.Errorf("expected sanitizer to run once, ran %d times", len(sanitizer.calls))
	}
}

// stripScriptSanitizer はscriptタグを除去する簡易サニタイザー。
type stripScriptSanitizer struct {
	inner *passthroughSanitizer
}

func (s *stripScriptSanitizer) Sanitize(rawHTML string) string {
	s.inner.Sanitize(rawHTML)
	out := rawHTML
	if i := strings.Index(out, "<script>"); i >= 0 {
		out = out[:i]
	}
	return out
}

func TestService_CreateSlugConflictPassesThrough(t *testing.T) {
	repo := &mockArticleRepo{
		insertFunc: func(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
			return nil, model.NewSlugConflictError(draft.Slug)
		},
	}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	_, err := svc.Create(context.Background(), validDraft())
	if model.ErrorCode(err) != model.ErrCodeSlugConflict {
		t.Errorf("expected slug conflict, got %v", err)
	}
}

func TestService_UpdateEmptyPatchRejected(t *testing.T) {
	repo := &mockArticleRepo{}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	_, err := svc.Update(context.Background(), "id-1", model.ArticlePatch{})
	if model.ErrorCode(err) != model.ErrCodeValidationFailed {
		t.Errorf("expected validation failure for empty patch, got %v", err)
	}
}

func TestService_UpdateEmptyRequiredFieldRejected(t *testing.T) {
	tests := []struct {
		name  string
		patch model.ArticlePatch
	}{
		{"タイトルを空に", model.ArticlePatch{Title: ptr("")}},
		{"概要を空に", model.ArticlePatch{Summary: ptr("  ")}},
		{"スラッグを空に", model.ArticlePatch{Slug: ptr("")}},
		{"画像URLを空に", model.ArticlePatch{ImageURL: ptr("")}},
		{"未知のカテゴリへ", model.ArticlePatch{Category: ptr("Sports")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockArticleRepo{}
			svc, _ := newTestService(repo, &fakeGate{authenticated: true})

			_, err := svc.Update(context.Background(), "id-1", tt.patch)
			if model.ErrorCode(err) != model.ErrCodeValidationFailed {
				t.Errorf("expected validation failure, got %v", err)
			}
			if repo.updateCalls != 0 {
				t.Error("invalid patch must not reach storage")
			}
		})
	}
}

func TestService_UpdateContentCanBeCleared(t *testing.T) {
	var sentFields map[string]any
	repo := &mockArticleRepo{
		updateFunc: func(ctx context.Context, id string, fields map[string]any) (*model.Article, error) {
			sentFields = fields
			return &model.Article{ID: id}, nil
		},
	}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	// 本文は任意フィールドなので空にする指定は許される
	_, err := svc.Update(context.Background(), "id-1", model.ArticlePatch{Content: ptr("")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := sentFields["content"]; !ok || v != "" {
		t.Errorf("expected content cleared in sent fields, got %v", sentFields)
	}
}

func TestService_UpdateSendsOnlySuppliedFields(t *testing.T) {
	var sentFields map[string]any
	repo := &mockArticleRepo{
		updateFunc: func(ctx context.Context, id string, fields map[string]any) (*model.Article, error) {
			sentFields = fields
			return &model.Article{ID: id}, nil
		},
	}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	patch := model.ArticlePatch{
		Title:    ptr("新しいタイトル"),
		Category: ptr("Tech"),
	}
	if _, err := svc.Update(context.Background(), "id-1", patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sentFields) != 2 {
		t.Errorf("expected exactly 2 fields sent, got %v", sentFields)
	}
	if sentFields["title"] != "新しいタイトル" || sentFields["category"] != "Tech" {
		t.Errorf("unexpected field values: %v", sentFields)
	}
}

func TestService_DeleteNotFoundPassesThrough(t *testing.T) {
	repo := &mockArticleRepo{
		deleteFunc: func(ctx context.Context, id string) error {
			return model.NewArticleNotFoundError(id)
		},
	}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})

	err := svc.Delete(context.Background(), "missing-id")
	if model.ErrorCode(err) != model.ErrCodeArticleNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_ListLatestRequiresPositiveCount(t *testing.T) {
	repo := &mockArticleRepo{}
	svc, _ := newTestService(repo, &fakeGate{})

	for _, n := range []int{0, -1} {
		if _, err := svc.ListLatest(context.Background(), n); model.ErrorCode(err) != model.ErrCodeValidationFailed {
			t.Errorf("n=%d: expected validation failure, got %v", n, err)
		}
	}
}

func TestService_SearchEmptyQueryReturnsAll(t *testing.T) {
	all := []model.Article{{ID: "1"}, {ID: "2"}}
	repo := &mockArticleRepo{
		listAllFunc: func(ctx context.Context) ([]model.Article, error) {
			return all, nil
		},
		searchFunc: func(ctx context.Context, query string) ([]model.Article, error) {
			t.Error("empty query must not hit the search path")
			return nil, nil
		},
	}
	svc, _ := newTestService(repo, &fakeGate{})

	got, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected all articles, got %d", len(got))
	}
}

// TestService_CreateThenListByCategory は作成した記事がそのカテゴリの
// 一覧に現れるシナリオを確認する。
func TestService_CreateThenListByCategory(t *testing.T) {
	store := make(map[string]model.Article)
	repo := &mockArticleRepo{
		insertFunc: func(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
			a := model.Article{
				ID:       "id-1",
				Title:    draft.Title,
				Summary:  draft.Summary,
				Content:  draft.Content,
				Category: draft.Category,
				Author:   draft.Author,
				ImageURL: draft.ImageURL,
				Slug:     draft.Slug,
			}
			store[a.ID] = a
			return &a, nil
		},
		listByCategoryFunc: func(ctx context.Context, category string) ([]model.Article, error) {
			var out []model.Article
			for _, a := range store {
				if a.Category == category {
					out = append(out, a)
				}
			}
			return out, nil
		},
	}
	svc, _ := newTestService(repo, &fakeGate{authenticated: true})
	ctx := context.Background()

	created, err := svc.Create(ctx, validDraft())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.ListByCategory(ctx, "Business")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != created.ID {
		t.Errorf("created article missing from category listing: %v", got)
	}

	// 完全一致比較なので大文字小文字違いはヒットしない
	got, err = svc.ListByCategory(ctx, "business")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("case-different category must not match, got %v", got)
	}
}

func ptr(s string) *string { return &s }
