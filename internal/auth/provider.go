// Package auth はセッション状態の追跡と書き込み操作の認証ゲートを提供する。
package auth

import "context"

// SessionInfo はアイデンティティプロバイダーから取得したセッション情報を表す。
type SessionInfo struct {
	Email string
}

// UnsubscribeFunc はセッション変更通知の購読を解除する。
// 複数回呼び出しても安全であること。
type UnsubscribeFunc func()

// IdentityProvider はホスト型アイデンティティプロバイダーのインターフェース。
// トークンの発行・検証・失効はプロバイダー側の責務であり、
// このコアはその契約にのみ依存する。
type IdentityProvider interface {
	// CurrentSession は現在のセッションを取得する。
	// セッションが存在しない場合は(nil, nil)を返す。
	// エラーはトランスポート障害のみを表す。
	CurrentSession(ctx context.Context) (*SessionInfo, error)

	// SignIn は資格情報をプロバイダーに検証させる。
	// 資格情報の誤りはfalseで表現され、エラーにはならない。
	// エラーはトランスポート障害のみを表す。
	// 成功時の状態遷移はプロバイダーのセッション変更通知が駆動する。
	SignIn(ctx context.Context, email, secret string) (bool, error)

	// SignOut はプロバイダーにサインアウトを要求する。
	// 状態遷移はセッション変更通知が駆動する。
	SignOut(ctx context.Context) error

	// OnSessionChange はセッション変更通知のリスナーを登録し、
	// 購読解除ハンドルを返す。通知はログイン・ログアウト・トークン失効など
	// クライアント自身の呼び出し以外の要因でも発生する。
	// 通知ストリームは順序付きで、後の通知が前の通知を論理的に置き換える。
	OnSessionChange(fn func(*SessionInfo)) UnsubscribeFunc
}
