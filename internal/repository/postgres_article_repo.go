package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
	"github.com/mrlongruoi/elegant-global-news/internal/record"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// articleColumns はSELECT/RETURNINGで使用するカラムリスト。
// スキャン順はscanArticleと一致させること。
const articleColumns = "id, title, summary, content, category, author, image_url, slug, published_at, updated_at"

// updatableColumns は部分更新で受け付けるカラム。
// id/published_atはクライアントから不変のため含まない。
var updatableColumns = []string{
	"title", "summary", "content", "category", "author", "image_url", "slug",
}

// rowScanner は*sql.Rowと*sql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanArticle は1行をストレージレコードに読み取り、ドメイン表現へ変換する。
// タイムスタンプはdatabase/sqlの変換でRFC 3339文字列として受け取り、
// マッパーに解析させる。解析失敗はMALFORMED_RECORDとして伝播する。
func scanArticle(s rowScanner) (*model.Article, error) {
	var rec record.Record
	err := s.Scan(
		&rec.ID, &rec.Title, &rec.Summary, &rec.Content, &rec.Category,
		&rec.Author, &rec.ImageURL, &rec.Slug, &rec.PublishedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article, err := record.ToDomain(rec)
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// queryArticles は複数行クエリを実行してドメイン表現のスライスを返す。
func (r *PostgresArticleRepo) queryArticles(ctx context.Context, op, query string, args ...any) ([]model.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateReadError(op, err)
	}
	defer rows.Close()

	articles := make([]model.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, translateReadError(op, err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, translateReadError(op, err)
	}

	return articles, nil
}

// ListAll は全記事をpublished_at降順で取得する。
func (r *PostgresArticleRepo) ListAll(ctx context.Context) ([]model.Article, error) {
	return r.queryArticles(ctx, "list_all",
		`SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC`)
}

// ListByCategory は指定カテゴリの記事をpublished_at降順で取得する。
// カテゴリ比較は保存値との完全一致。
func (r *PostgresArticleRepo) ListByCategory(ctx context.Context, category string) ([]model.Article, error) {
	return r.queryArticles(ctx, "list_by_category",
		`SELECT `+articleColumns+` FROM articles WHERE category = $1 ORDER BY published_at DESC`,
		category)
}

// ListLatest は最新n件の記事を取得する。
func (r *PostgresArticleRepo) ListLatest(ctx context.Context, n int) ([]model.Article, error) {
	return r.queryArticles(ctx, "list_latest",
		`SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC LIMIT $1`,
		n)
}

// Search はtitle/summary/categoryに対するILIKE部分一致検索を行う。
func (r *PostgresArticleRepo) Search(ctx context.Context, query string) ([]model.Article, error) {
	pattern := "%" + escapeLikePattern(query) + "%"
	return r.queryArticles(ctx, "search",
		`SELECT `+articleColumns+` FROM articles
		 WHERE title ILIKE $1 OR summary ILIKE $1 OR category ILIKE $1
		 ORDER BY published_at DESC`,
		pattern)
}

// FindBySlug は指定スラッグの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.Article, error) {
	article, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadError("find_by_slug", err)
	}
	return article, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
// IDがUUIDとして不正な場合も「存在しない」と同義のためnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	article, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
	if err == sql.ErrNoRows || isInvalidTextRepresentation(err) {
		return nil, nil
	}
	if err != nil {
		return nil, translateReadError("find_by_id", err)
	}
	return article, nil
}

// Insert は記事を挿入する。IDはここで採番し、published_at/updated_atは
// ストアが付与する。完全な記事をRETURNINGで取得して返す。
func (r *PostgresArticleRepo) Insert(ctx context.Context, draft model.ArticleDraft) (*model.Article, error) {
	id := uuid.New().String()
	fields := record.DraftToStorage(draft)

	article, err := scanArticle(r.db.QueryRowContext(ctx,
		`INSERT INTO articles (id, title, summary, content, category, author, image_url, slug)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+articleColumns,
		id, fields["title"], fields["summary"], fields["content"],
		fields["category"], fields["author"], fields["image_url"], fields["slug"],
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.NewSlugConflictError(draft.Slug)
		}
		return nil, translateWriteError("insert", err)
	}

	return article, nil
}

// Update は指定フィールドのみをSETし、updated_atを更新する。
// fieldsに含まれないカラムには触れない（省略フィールドのnull化なし）。
func (r *PostgresArticleRepo) Update(ctx context.Context, id string, fields map[string]any) (*model.Article, error) {
	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	placeholder := 1

	// カラムリスト順に組み立ててクエリを決定的にする
	for _, col := range updatableColumns {
		value, ok := fields[col]
		if !ok {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, placeholder))
		args = append(args, value)
		placeholder++
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := fmt.Sprintf(
		`UPDATE articles SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), placeholder, articleColumns,
	)
	args = append(args, id)

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows || isInvalidTextRepresentation(err) {
		return nil, model.NewArticleNotFoundError(id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			slug, _ := fields["slug"].(string)
			return nil, model.NewSlugConflictError(slug)
		}
		return nil, translateWriteError("update", err)
	}

	return article, nil
}

// Delete は指定IDの記事を削除する。
// 対象が存在しない場合（削除済みのIDの再削除を含む）はARTICLE_NOT_FOUNDを返す。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return model.NewArticleNotFoundError(id)
		}
		return translateWriteError("delete", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return translateWriteError("delete", err)
	}
	if affected == 0 {
		return model.NewArticleNotFoundError(id)
	}

	return nil
}

// escapeLikePattern はLIKE/ILIKEパターンのメタ文字をエスケープする。
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isUniqueViolation は一意制約違反（PostgreSQLエラーコード23505）かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isInvalidTextRepresentation は値の形式不正（22P02、不正なUUID文字列等）かを判定する。
// ID検索で発生した場合は「存在しない」と同義として扱う。
func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// isTransportFailure はネットワーク・接続起因の一時障害かを判定する。
// 再試行で解消しうる障害のみをtrueにする。
func isTransportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// PostgreSQLエラークラス08: Connection Exception
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return true
	}
	return false
}

// translateReadError は読み取り系の下位エラーをAPIErrorに変換する。
// マッパー由来のMALFORMED_RECORDはそのまま伝播する。
func translateReadError(op string, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if isTransportFailure(err) {
		return model.NewTransientError(op, err)
	}
	return model.NewLookupError(op, err)
}

// translateWriteError は書き込み系の下位エラーをAPIErrorに変換する。
func translateWriteError(op string, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if isTransportFailure(err) {
		return model.NewTransientError(op, err)
	}
	return model.NewLookupError(op, err)
}
