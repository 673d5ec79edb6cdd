package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	defaultProviderTimeout     = 10 * time.Second
	defaultSessionPollInterval = time.Minute

	tokenPath  = "/auth/v1/token?grant_type=password"
	userPath   = "/auth/v1/user"
	logoutPath = "/auth/v1/logout"
)

// HTTPProviderConfig はHTTPアイデンティティプロバイダーの設定。
type HTTPProviderConfig struct {
	// BaseURL はプロバイダーのベースURL。
	BaseURL string
	// APIKey はプロバイダーのAPIキー（任意）。
	APIKey string
	// Timeout は各リクエストのタイムアウト。未指定時は10秒。
	Timeout time.Duration
	// PollInterval はトークン失効検出のポーリング間隔。未指定時は1分。
	// プロバイダーはWebSocket等のプッシュ経路を持たないため、
	// 帯域外のセッション失効はポーリングで検出して通知に変換する。
	PollInterval time.Duration
}

// HTTPIdentityProvider はホスト型アイデンティティプロバイダーのHTTPクライアント実装。
// アクセストークンを保持し、セッションの変化（ログイン・ログアウト・失効検出）を
// 登録されたリスナーへ通知する。
type HTTPIdentityProvider struct {
	config HTTPProviderConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
	current     *SessionInfo
	listeners   map[int]func(*SessionInfo)
	nextID      int

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHTTPIdentityProvider はHTTPIdentityProviderを生成し、
// バックグラウンドで失効検出のポーリングを開始する。
// 使用後はCloseでポーリングを停止すること。
func NewHTTPIdentityProvider(config HTTPProviderConfig) *HTTPIdentityProvider {
	if config.Timeout == 0 {
		config.Timeout = defaultProviderTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaultSessionPollInterval
	}

	p := &HTTPIdentityProvider{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		listeners: make(map[int]func(*SessionInfo)),
		stopCh:    make(chan struct{}),
	}

	go p.pollLoop()

	return p
}

// Close は失効検出のポーリングを停止する。
func (p *HTTPIdentityProvider) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		Email string `json:"email"`
	} `json:"user"`
}

// userResponse はユーザー情報エンドポイントのレスポンス。
type userResponse struct {
	Email string `json:"email"`
}

// CurrentSession は現在のセッションを取得する。
// トークンを保持していない場合は(nil, nil)を返す。
// トークンがプロバイダー側で失効していた場合もセッションなしとして扱う。
func (p *HTTPIdentityProvider) CurrentSession(ctx context.Context) (*SessionInfo, error) {
	p.mu.Lock()
	token := p.accessToken
	p.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	p.setAuthHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// トークン失効。保持トークンを破棄し、セッションなしを返す。
		p.clearSession()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user request returned status %d: %s", resp.StatusCode, string(body))
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}

	info := &SessionInfo{Email: user.Email}
	p.mu.Lock()
	p.current = info
	p.mu.Unlock()

	return info, nil
}

// SignIn は資格情報をトークンに交換する。
// 資格情報の誤り（4xx）はfalseで返し、エラーにはしない。
// 成功時はセッション変更通知を発行する。
func (p *HTTPIdentityProvider) SignIn(ctx context.Context, email, secret string) (bool, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": secret,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("apikey", p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read token response: %w", err)
	}

	// 資格情報の誤りはプロバイダーが4xxで表現する
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("token request returned status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return false, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return false, fmt.Errorf("empty access token in response")
	}

	info := &SessionInfo{Email: token.User.Email}
	if info.Email == "" {
		info.Email = email
	}

	p.mu.Lock()
	p.accessToken = token.AccessToken
	p.current = info
	p.mu.Unlock()

	p.emit(info)
	return true, nil
}

// SignOut はプロバイダーにサインアウトを要求し、保持トークンを破棄する。
// 成功時はセッションなしの変更通知を発行する。
func (p *HTTPIdentityProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.accessToken
	p.mu.Unlock()

	if token == "" {
		// 保持セッションなし。通知だけ流して冪等に成功させる。
		p.clearSession()
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+logoutPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	p.setAuthHeaders(req, token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 2xx以外（トークン失効済み等）でもローカルのセッションは破棄する
	p.clearSession()
	return nil
}

// OnSessionChange はセッション変更通知のリスナーを登録する。
func (p *HTTPIdentityProvider) OnSessionChange(fn func(*SessionInfo)) UnsubscribeFunc {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// setAuthHeaders はBearerトークンとAPIキーをリクエストに付与する。
func (p *HTTPIdentityProvider) setAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	if p.config.APIKey != "" {
		req.Header.Set("apikey", p.config.APIKey)
	}
}

// clearSession は保持トークンを破棄し、セッションなしを通知する。
func (p *HTTPIdentityProvider) clearSession() {
	p.mu.Lock()
	hadSession := p.accessToken != "" || p.current != nil
	p.accessToken = ""
	p.current = nil
	p.mu.Unlock()

	if hadSession {
		p.emit(nil)
	}
}

// emit は登録済みリスナーへセッション変更を通知する。
// 通知は登録順を保証しないが、1回のemitのスナップショットを全リスナーに届ける。
func (p *HTTPIdentityProvider) emit(info *SessionInfo) {
	p.mu.Lock()
	listeners := make([]func(*SessionInfo), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(info)
	}
}

// pollLoop はトークンの帯域外失効を定期的に検出する。
// 失効を検出するとclearSession経由でセッションなしの通知が発行される。
func (p *HTTPIdentityProvider) pollLoop() {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.mu.Lock()
			token := p.accessToken
			p.mu.Unlock()
			if token == "" {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
			// CurrentSessionが失効を検出した場合はclearSessionが通知を発行する
			_, _ = p.CurrentSession(ctx)
			cancel()
		}
	}
}
