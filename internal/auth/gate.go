package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/mrlongruoi/elegant-global-news/internal/model"
)

// GateConfig はセッションゲートの設定。
type GateConfig struct {
	// AllowedEmails はログインを許可するアイデンティティの集合。
	// 単一管理者運用では1件だけを設定する。
	AllowedEmails []string
}

// SessionGate は現在の認証セッションを追跡し、
// 書き込み操作の可否判定を提供する。
//
// 状態はUnknown（初回確認の解決前）→ Authenticated | Anonymousと遷移し、
// 以降はプロバイダーのセッション変更通知だけが状態を動かす。
// Login/Logoutの呼び出し自体は状態を同期的に変更しない
// （二重遷移バグを避けるため、遷移は常に通知側に一本化する）。
type SessionGate struct {
	provider IdentityProvider
	allowed  map[string]struct{}

	mu          sync.RWMutex
	state       model.AuthState
	session     *model.Session
	resolved    bool // プロバイダーからの報告を一度でも受けたか
	unsubscribe UnsubscribeFunc
	subscribers map[int]func(model.AuthState, *model.Session)
	nextSubID   int
}

// NewSessionGate はSessionGateを生成する。初期状態はUnknown。
// プロバイダーとの接続はStartを呼ぶまで開始されない。
func NewSessionGate(provider IdentityProvider, config GateConfig) *SessionGate {
	allowed := make(map[string]struct{}, len(config.AllowedEmails))
	for _, email := range config.AllowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &SessionGate{
		provider:    provider,
		allowed:     allowed,
		state:       model.AuthStateUnknown,
		subscribers: make(map[int]func(model.AuthState, *model.Session)),
	}
}

// Start はプロバイダーへの購読を登録し、初回セッション確認を開始する。
// 購読登録を初回確認より先に行うことで、確認の解決前に届いた通知を
// 取りこぼさない。初回確認は非同期に解決し、その前に通知が届いた場合は
// 通知が優先される（先に報告したチャネルが勝つ）。
func (g *SessionGate) Start(ctx context.Context) {
	g.mu.Lock()
	g.unsubscribe = g.provider.OnSessionChange(g.handlePush)
	g.mu.Unlock()

	go g.restore(ctx)
}

// restore はプロバイダーの初回セッション確認を行い、結果を反映する。
func (g *SessionGate) restore(ctx context.Context) {
	info, err := g.provider.CurrentSession(ctx)
	if err != nil {
		// 初回確認の失敗はセッションなしとして扱う。
		// Unknownに留めると読み込み中表示が解けなくなる。
		slog.Warn("initial session check failed",
			slog.String("error", err.Error()),
		)
		info = nil
	}
	g.applyInitial(info)
}

// applyInitial は初回セッション確認の結果を反映する。
// 既に通知が状態を解決済みの場合、確認結果は破棄される。
func (g *SessionGate) applyInitial(info *SessionInfo) {
	g.mu.Lock()
	if g.resolved {
		g.mu.Unlock()
		return
	}
	subs := g.applyLocked(info)
	g.mu.Unlock()

	g.notify(subs)
}

// handlePush はプロバイダーのセッション変更通知を反映する。
// 通知は常に適用される（後の通知が前の状態を置き換える）。
func (g *SessionGate) handlePush(info *SessionInfo) {
	g.mu.Lock()
	subs := g.applyLocked(info)
	g.mu.Unlock()

	g.notify(subs)
}

// applyLocked は状態を更新し、通知対象の購読者スナップショットを返す。
// 呼び出し側がg.muを保持していること。
func (g *SessionGate) applyLocked(info *SessionInfo) []func(model.AuthState, *model.Session) {
	g.resolved = true
	if info != nil {
		g.state = model.AuthStateAuthenticated
		g.session = &model.Session{Email: info.Email}
	} else {
		g.state = model.AuthStateAnonymous
		g.session = nil
	}

	subs := make([]func(model.AuthState, *model.Session), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// notify は購読者へ現在の状態を通知する。ロック外で呼び出すこと。
func (g *SessionGate) notify(subs []func(model.AuthState, *model.Session)) {
	state, session := g.Snapshot()
	for _, fn := range subs {
		fn(state, session)
	}
}

// Login は資格情報をプロバイダーに検証させる。
// 許可されていないアイデンティティは資格情報エラーと同様にfalseを返し、
// プロバイダーへの問い合わせは行わない。
// 成功してもこの呼び出しは状態を変更しない（プロバイダーの通知が駆動する）。
// エラーはトランスポート障害のみを表す。
func (g *SessionGate) Login(ctx context.Context, email, secret string) (bool, error) {
	if !g.isAllowed(email) {
		return false, nil
	}

	ok, err := g.provider.SignIn(ctx, email, secret)
	if err != nil {
		return false, model.NewTransientError("sign_in", err)
	}
	return ok, nil
}

// Logout はプロバイダーにサインアウトを要求する。
// 状態遷移はプロバイダーの通知が駆動する。
func (g *SessionGate) Logout(ctx context.Context) error {
	if err := g.provider.SignOut(ctx); err != nil {
		return model.NewTransientError("sign_out", err)
	}
	return nil
}

// isAllowed はアイデンティティが認可述語を満たすかを判定する。
func (g *SessionGate) isAllowed(email string) bool {
	_, ok := g.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// State は現在の認証状態を返す。
func (g *SessionGate) State() model.AuthState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Snapshot は現在の状態とセッションを同時に返す。
func (g *SessionGate) Snapshot() (model.AuthState, *model.Session) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return g.state, nil
	}
	session := *g.session
	return g.state, &session
}

// IsAuthenticated は書き込み操作が許可される状態かを返す。
// UnknownとAnonymousはいずれも書き込みを許可しない。
func (g *SessionGate) IsAuthenticated() bool {
	return g.State() == model.AuthStateAuthenticated
}

// IsLoading は初回セッション確認が未解決かを返す。
// 呼び出し側はこの間、未認証UIの表示や早すぎるリダイレクトを避けられる。
func (g *SessionGate) IsLoading() bool {
	return g.State() == model.AuthStateUnknown
}

// CurrentEmail はログイン中のアイデンティティを返す。
func (g *SessionGate) CurrentEmail() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return "", false
	}
	return g.session.Email, true
}

// Subscribe は状態変化の購読者を登録し、購読解除ハンドルを返す。
func (g *SessionGate) Subscribe(fn func(model.AuthState, *model.Session)) UnsubscribeFunc {
	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	g.subscribers[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subscribers, id)
		g.mu.Unlock()
	}
}

// Close はプロバイダーへの購読を解除し、以降の通知を破棄する。
// 破棄済みの購読者へコールバックが飛ばないよう、終了処理で必ず呼ぶこと。
func (g *SessionGate) Close() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.subscribers = make(map[int]func(model.AuthState, *model.Session))
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
