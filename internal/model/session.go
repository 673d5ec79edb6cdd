// Package model はドメインモデルを定義する。
package model

// AuthState はセッションゲートが追跡する認証状態を表す。
type AuthState string

const (
	// AuthStateUnknown はプロバイダーの初回セッション確認が未解決の初期状態。
	// 「未ログインと判明」とは区別され、この状態でも書き込みは拒否される。
	AuthStateUnknown AuthState = "unknown"
	// AuthStateAuthenticated はログイン済みセッションが存在する状態。
	AuthStateAuthenticated AuthState = "authenticated"
	// AuthStateAnonymous はセッションが存在しないと判明した状態。
	AuthStateAnonymous AuthState = "anonymous"
)

// Session はログイン中のアイデンティティを表す。
// クライアントから見て意味を持つセッションは常に1つだけ（単一管理者モデル）。
type Session struct {
	Email string
}
