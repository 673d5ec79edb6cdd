// Package record は記事のストレージ表現とドメイン表現の相互変換を提供する。
//
// ストレージ表現はsnake_caseのフィールド名とRFC 3339文字列のタイムスタンプを持ち、
// ドメイン表現（model.Article）はパース済みのtime.Timeを持つ。
// 変換は副作用を持たない純粋関数であり、タイムスタンプの解析失敗と
// 必須フィールドの欠落のみが失敗する。
package record

import (
	"fmt"
	"time"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// Record は記事のストレージ表現を表す。
// ストアとの入出力およびスキャン結果の中間形として使用する。
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	Category    string `json:"category"`
	Author      string `json:"author"`
	ImageURL    string `json:"image_url"`
	Slug        string `json:"slug"`
	PublishedAt string `json:"published_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ToDomain はストレージ表現をドメイン表現に変換する。
// published_atの解析失敗または必須フィールドの欠落はMALFORMED_RECORDエラーになる。
// contentとupdated_atは任意フィールドのため欠落を許容する。
func ToDomain(rec Record) (model.Article, error) {
	required := []struct {
		name  string
		value string
	}{
		{"id", rec.ID},
		{"title", rec.Title},
		{"summary", rec.Summary},
		{"category", rec.Category},
		{"author", rec.Author},
		{"image_url", rec.ImageURL},
		{"slug", rec.Slug},
		{"published_at", rec.PublishedAt},
	}
	for _, f := range required {
		if f.value == "" {
			return model.Article{}, model.NewMalformedRecordError(
				fmt.Sprintf("必須フィールド %s が存在しません", f.name), nil)
		}
	}

	publishedAt, err := time.Parse(time.RFC3339, rec.PublishedAt)
	if err != nil {
		return model.Article{}, model.NewMalformedRecordError(
			fmt.Sprintf("published_at を解析できません: %s", rec.PublishedAt), err)
	}

	var updatedAt time.Time
	if rec.UpdatedAt != "" {
		updatedAt, err = time.Parse(time.RFC3339, rec.UpdatedAt)
		if err != nil {
			return model.Article{}, model.NewMalformedRecordError(
				fmt.Sprintf("updated_at を解析できません: %s", rec.UpdatedAt), err)
		}
	}

	return model.Article{
		ID:          rec.ID,
		Title:       rec.Title,
		Summary:     rec.Summary,
		Content:     rec.Content,
		Category:    rec.Category,
		Author:      rec.Author,
		ImageURL:    rec.ImageURL,
		Slug:        rec.Slug,
		PublishedAt: publishedAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// FromDomain はドメイン表現を完全なストレージ表現に変換する。
// タイムスタンプはRFC 3339（ナノ秒精度）の文字列になる。
func FromDomain(a model.Article) Record {
	rec := Record{
		ID:          a.ID,
		Title:       a.Title,
		Summary:     a.Summary,
		Content:     a.Content,
		Category:    a.Category,
		Author:      a.Author,
		ImageURL:    a.ImageURL,
		Slug:        a.Slug,
		PublishedAt: a.PublishedAt.Format(time.RFC3339Nano),
	}
	if !a.UpdatedAt.IsZero() {
		rec.UpdatedAt = a.UpdatedAt.Format(time.RFC3339Nano)
	}
	return rec
}

// DraftToStorage は記事作成の入力をストレージ形式のフィールド集合に変換する。
// idとpublished_atはストアが採番するため含まない。
func DraftToStorage(d model.ArticleDraft) map[string]any {
	return map[string]any{
		"title":     d.Title,
		"summary":   d.Summary,
		"content":   d.Content,
		"category":  d.Category,
		"author":    d.Author,
		"image_url": d.ImageURL,
		"slug":      d.Slug,
	}
}

// PatchToStorage は部分更新の入力をストレージ形式のフィールド集合に変換する。
// 明示的に指定されたフィールドのみを含む（デフォルト補完も省略フィールドの
// null化も行わない）。この最小性が部分更新を安全にしている。
func PatchToStorage(p model.ArticlePatch) map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Summary != nil {
		fields["summary"] = *p.Summary
	}
	if p.Content != nil {
		fields["content"] = *p.Content
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.Slug != nil {
		fields["slug"] = *p.Slug
	}
	return fields
}
