package record

import (
	"testing"
	"time"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// validRecord はテスト用の整形式ストレージレコードを返す。
func validRecord() Record {
	return Record{
		ID:          "a1b2c3d4-0000-0000-0000-000000000001",
		Title:       "世界のニュース",
		Summary:     "要約テキスト",
		Content:     "<p>本文</p>",
		Category:    "World",
		Author:      "Jane Doe",
		ImageURL:    "https://example.com/cover.png",
		Slug:        "world-news",
		PublishedAt: "2025-06-01T09:30:00Z",
		UpdatedAt:   "2025-06-02T10:00:00Z",
	}
}

// TestToDomain_ParsesTimestamps はストレージ表現の文字列タイムスタンプが
// time.Timeに解析されることをテストする。
func TestToDomain_ParsesTimestamps(t *testing.T) {
	a, err := ToDomain(validRecord())
	if err != nil {
		t.Fatalf("ToDomain() error = %v", err)
	}

	wantPublished := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	if !a.PublishedAt.Equal(wantPublished) {
		t.Errorf("PublishedAt = %v, want %v", a.PublishedAt, wantPublished)
	}
	wantUpdated := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !a.UpdatedAt.Equal(wantUpdated) {
		t.Errorf("UpdatedAt = %v, want %v", a.UpdatedAt, wantUpdated)
	}
	if a.ImageURL != "https://example.com/cover.png" {
		t.Errorf("ImageURL = %q, want %q", a.ImageURL, "https://example.com/cover.png")
	}
}

// TestToDomain_FractionalSeconds は小数秒付きタイムスタンプを許容することをテストする。
func TestToDomain_FractionalSeconds(t *testing.T) {
	rec := validRecord()
	rec.PublishedAt = "2025-06-01T09:30:00.123456+09:00"

	a, err := ToDomain(rec)
	if err != nil {
		t.Fatalf("ToDomain() error = %v", err)
	}
	if a.PublishedAt.Nanosecond() != 123456000 {
		t.Errorf("PublishedAt.Nanosecond() = %d, want 123456000", a.PublishedAt.Nanosecond())
	}
}

// TestToDomain_MalformedTimestamp は解析不能なpublished_atが
// MALFORMED_RECORDエラーになることをテストする。
func TestToDomain_MalformedTimestamp(t *testing.T) {
	rec := validRecord()
	rec.PublishedAt = "not-a-timestamp"

	_, err := ToDomain(rec)
	if err == nil {
		t.Fatal("ToDomain() error = nil, want MALFORMED_RECORD")
	}
	if code := model.ErrorCode(err); code != model.ErrCodeMalformedRecord {
		t.Errorf("ErrorCode = %q, want %q", code, model.ErrCodeMalformedRecord)
	}
}

// TestToDomain_MissingRequiredField は必須フィールド欠落が
// MALFORMED_RECORDエラーになることをテストする。
func TestToDomain_MissingRequiredField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Record)
	}{
		{"id欠落", func(r *Record) { r.ID = "" }},
		{"title欠落", func(r *Record) { r.Title = "" }},
		{"summary欠落", func(r *Record) { r.Summary = "" }},
		{"category欠落", func(r *Record) { r.Category = "" }},
		{"author欠落", func(r *Record) { r.Author = "" }},
		{"image_url欠落", func(r *Record) { r.ImageURL = "" }},
		{"slug欠落", func(r *Record) { r.Slug = "" }},
		{"published_at欠落", func(r *Record) { r.PublishedAt = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			tc.mutate(&rec)
			_, err := ToDomain(rec)
			if code := model.ErrorCode(err); code != model.ErrCodeMalformedRecord {
				t.Errorf("ErrorCode = %q, want %q", code, model.ErrCodeMalformedRecord)
			}
		})
	}
}

// TestToDomain_OptionalFields はcontentとupdated_atの欠落が許容されることをテストする。
func TestToDomain_OptionalFields(t *testing.T) {
	rec := validRecord()
	rec.Content = ""
	rec.UpdatedAt = ""

	a, err := ToDomain(rec)
	if err != nil {
		t.Fatalf("ToDomain() error = %v", err)
	}
	if a.Content != "" {
		t.Errorf("Content = %q, want empty", a.Content)
	}
	if !a.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", a.UpdatedAt)
	}
}

// TestRoundTrip はToDomain(FromDomain(ToDomain(r)))がToDomain(r)と
// 等しいこと（往復変換の安定性）をテストする。
func TestRoundTrip(t *testing.T) {
	first, err := ToDomain(validRecord())
	if err != nil {
		t.Fatalf("1回目のToDomain() error = %v", err)
	}

	second, err := ToDomain(FromDomain(first))
	if err != nil {
		t.Fatalf("2回目のToDomain() error = %v", err)
	}

	if second.ID != first.ID || second.Title != first.Title ||
		second.Summary != first.Summary || second.Content != first.Content ||
		second.Category != first.Category || second.Author != first.Author ||
		second.ImageURL != first.ImageURL || second.Slug != first.Slug {
		t.Errorf("往復変換後のフィールドが一致しません: got %+v, want %+v", second, first)
	}
	if !second.PublishedAt.Equal(first.PublishedAt) {
		t.Errorf("PublishedAt = %v, want %v", second.PublishedAt, first.PublishedAt)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", second.UpdatedAt, first.UpdatedAt)
	}
}

// TestPatchToStorage_Minimality は指定されたフィールドだけが
// 出力に含まれること（部分更新の最小性）をテストする。
func TestPatchToStorage_Minimality(t *testing.T) {
	title := "新しいタイトル"
	slug := "new-slug"
	patch := model.ArticlePatch{Title: &title, Slug: &slug}

	fields := PatchToStorage(patch)

	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2: %v", len(fields), fields)
	}
	if fields["title"] != title {
		t.Errorf("fields[title] = %v, want %q", fields["title"], title)
	}
	if fields["slug"] != slug {
		t.Errorf("fields[slug] = %v, want %q", fields["slug"], slug)
	}
}

// TestPatchToStorage_Empty は空のパッチが空のフィールド集合になることをテストする。
func TestPatchToStorage_Empty(t *testing.T) {
	fields := PatchToStorage(model.ArticlePatch{})
	if len(fields) != 0 {
		t.Errorf("len(fields) = %d, want 0", len(fields))
	}
}

// TestPatchToStorage_ExplicitEmptyString は空文字列の明示指定が
// 「指定あり」として出力に含まれることをテストする。
func TestPatchToStorage_ExplicitEmptyString(t *testing.T) {
	empty := ""
	fields := PatchToStorage(model.ArticlePatch{Content: &empty})

	v, ok := fields["content"]
	if !ok {
		t.Fatal("fields[content] が存在しません")
	}
	if v != "" {
		t.Errorf("fields[content] = %v, want empty string", v)
	}
}

// TestDraftToStorage は作成入力の全フィールドがsnake_caseで含まれ、
// id/published_atが含まれないことをテストする。
func TestDraftToStorage(t *testing.T) {
	draft := model.ArticleDraft{
		Title:    "T",
		Summary:  "S",
		Content:  "C",
		Category: "World",
		Author:   "A",
		ImageURL: "https://x/y.png",
		Slug:     "t",
	}

	fields := DraftToStorage(draft)

	if len(fields) != 7 {
		t.Fatalf("len(fields) = %d, want 7", len(fields))
	}
	if _, ok := fields["id"]; ok {
		t.Error("fields に id が含まれています（ストア採番のため含めない）")
	}
	if _, ok := fields["published_at"]; ok {
		t.Error("fields に published_at が含まれています（ストア採番のため含めない）")
	}
	if fields["image_url"] != "https://x/y.png" {
		t.Errorf("fields[image_url] = %v, want %q", fields["image_url"], "https://x/y.png")
	}
}
