// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// ArticleRepository は記事データの永続化インターフェース。
// 一覧系の操作はすべてpublished_at降順で返す。
// バックエンドが唯一の真実であり、呼び出し側が保持する一覧はスナップショットにすぎない。
type ArticleRepository interface {
	// ListAll は全記事を取得する。
	ListAll(ctx context.Context) ([]model.Article, error)

	// ListByCategory は指定カテゴリの記事を取得する。
	// カテゴリ比較は保存値との完全一致で行う。
	ListByCategory(ctx context.Context, category string) ([]model.Article, error)

	// ListLatest は最新n件の記事を取得する。総数がnに満たない場合は全件を返す。
	ListLatest(ctx context.Context, n int) ([]model.Article, error)

	// Search はtitle/summary/categoryに対する大文字小文字を区別しない
	// 部分一致検索を行う。
	Search(ctx context.Context, query string) ([]model.Article, error)

	// FindBySlug は指定スラッグの記事を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// Insert は記事を挿入する。idとpublished_atはここで採番・付与され、
	// 完全な記事が返る。スラッグの一意性違反はSLUG_CONFLICTエラーになる。
	Insert(ctx context.Context, draft model.ArticleDraft) (*model.Article, error)

	// Update は指定フィールドのみを更新し、updated_atを更新する。
	// fieldsはストレージ形式（snake_case）のフィールド集合。
	// 対象IDが存在しない場合はARTICLE_NOT_FOUNDエラーになる。
	Update(ctx context.Context, id string, fields map[string]any) (*model.Article, error)

	// Delete は指定IDの記事を完全に削除する（ソフトデリートなし）。
	// 対象IDが存在しない場合（削除済み含む）はARTICLE_NOT_FOUNDエラーになる。
	Delete(ctx context.Context, id string) error
}
