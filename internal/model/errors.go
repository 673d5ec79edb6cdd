// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 呼び出し側はCodeで再試行可否や表示内容を分岐できる。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, transport, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因となった下位エラー（存在する場合）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeSlugConflict     = "SLUG_CONFLICT"
	ErrCodeArticleNotFound  = "ARTICLE_NOT_FOUND"
	ErrCodeLookupFailed     = "LOOKUP_FAILED"
	ErrCodeTransientFailure = "TRANSIENT_FAILURE"
	ErrCodeMalformedRecord  = "MALFORMED_RECORD"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
)

// ErrorCode はエラーからAPIErrorのコードを取り出す。
// APIErrorでない場合は空文字列を返す。
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsTransient はエラーが再試行可能な一時障害かを判定する。
// データレベルのエラー（検証・競合・未検出）は入力を変えない限り再試行してはならない。
func IsTransient(err error) bool {
	return ErrorCode(err) == ErrCodeTransientFailure
}

// NewValidationError は入力検証エラーを生成する。
// ネットワークI/Oの前に検出されるエラーであり、再試行しても解消しない。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正してから再度お試しください。",
	}
}

// NewSlugConflictError はスラッグの一意性違反エラーを生成する。
func NewSlugConflictError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeSlugConflict,
		Message:  fmt.Sprintf("スラッグが既存の記事と重複しています: %s", slug),
		Category: "data",
		Action:   "別のスラッグを指定してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
// 既に削除済みのIDに対する削除も同じエラーになる（クラッシュではない）。
func NewArticleNotFoundError(idOrSlug string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", idOrSlug),
		Category: "data",
		Action:   "記事の一覧を再取得して確認してください。",
	}
}

// NewLookupError は読み取り中の予期しない障害エラーを生成する。
func NewLookupError(op string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeLookupFailed,
		Message:  fmt.Sprintf("記事の取得中にエラーが発生しました: %s", op),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewTransientError はネットワーク・トランスポート起因の一時障害エラーを生成する。
func NewTransientError(op string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransientFailure,
		Message:  fmt.Sprintf("通信エラーが発生しました: %s", op),
		Category: "transport",
		Action:   "接続状態を確認し、再試行してください。",
		Err:      err,
	}
}

// NewMalformedRecordError は保存データの解析失敗エラーを生成する。
// 呼び出し側の入力ミスではなくストア側のデータ破損を示す。
func NewMalformedRecordError(reason string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedRecord,
		Message:  fmt.Sprintf("保存された記事データを解析できません: %s", reason),
		Category: "system",
		Action:   "管理者に連絡してください。",
		Err:      err,
	}
}

// NewUnauthorizedError は未認証状態での書き込み試行エラーを生成する。
// 認証状態が不明（初回確認の解決前）の場合も未ログインと同様に拒否される。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}
