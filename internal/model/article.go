// Package model はドメインモデルを定義する。
package model

import "time"

// Article は公開サイトと管理コンソールで扱う記事を表す。
// ストレージ表現（snake_case、文字列タイムスタンプ）との変換は
// recordパッケージのマッパーが担当する。
type Article struct {
	ID          string
	Title       string
	Summary     string
	Content     string // サニタイズ済みHTML（本文なしの記事では空文字列）
	Category    string
	Author      string
	ImageURL    string
	Slug        string
	PublishedAt time.Time // ストアが採番時に付与。以降クライアントからは不変
	UpdatedAt   time.Time
}

// ArticleDraft は記事作成の入力を表す。
// IDとPublishedAtはストアが採番するため含まない。
type ArticleDraft struct {
	Title    string
	Summary  string
	Content  string
	Category string
	Author   string
	ImageURL string
	Slug     string
}

// ArticlePatch は記事の部分更新の入力を表す。
// nilのフィールドは「指定なし」を意味し、更新対象に含まれない。
// 空文字列のポインタは「空にする指定」であり、必須フィールドでは検証エラーになる。
type ArticlePatch struct {
	Title    *string
	Summary  *string
	Content  *string
	Category *string
	Author   *string
	ImageURL *string
	Slug     *string
}

// IsEmpty はパッチに指定フィールドが1つもないことを判定する。
func (p ArticlePatch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.Content == nil &&
		p.Category == nil && p.Author == nil && p.ImageURL == nil && p.Slug == nil
}

// Categories は記事カテゴリの固定セット。
// ナビゲーションとカテゴリ別一覧はこのセットを前提とする。
var Categories = []string{
	"World",
	"Politics",
	"Business",
	"Tech",
	"Science",
	"Culture",
	"Opinion",
}

// IsValidCategory はカテゴリが固定セットに含まれるかを判定する。
// 比較は保存値との完全一致（大文字小文字の正規化は呼び出し側の責務）。
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
