package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    2,
		AdminWriteRate:  rate.Limit(1),
		AdminWriteBurst: 1,
		CleanupInterval: time.Hour,
	}
}

func doRequest(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Result().StatusCode
}

// TestRateLimiter_GeneralAllowsWithinBurst はバースト内のリクエストが通過することを検証する。
func TestRateLimiter_GeneralAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		if status := doRequest(handler, "203.0.113.1:51000"); status != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, status, http.StatusOK)
		}
	}
}

// TestRateLimiter_GeneralRejectsOverBurst はバースト超過が429になることを検証する。
func TestRateLimiter_GeneralRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	doRequest(handler, "203.0.113.1:51000")
	doRequest(handler, "203.0.113.1:51000")

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.RemoteAddr = "203.0.113.1:51000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}
	if w.Result().Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// TestRateLimiter_ClientsAreIndependent はクライアントIPごとに独立した
// リミッターが使われることを検証する。
func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// 1つ目のクライアントがバーストを使い切る
	doRequest(handler, "203.0.113.1:51000")
	doRequest(handler, "203.0.113.1:51000")

	// ポートが違っても同一IPは同一クライアント
	if status := doRequest(handler, "203.0.113.1:52000"); status != http.StatusTooManyRequests {
		t.Errorf("same IP different port: status = %d, want 429", status)
	}

	// 別IPは影響を受けない
	if status := doRequest(handler, "203.0.113.2:51000"); status != http.StatusOK {
		t.Errorf("different IP: status = %d, want 200", status)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("limiter count = %d, want 2", got)
	}
}

// TestRateLimiter_AdminWriteIndependentOfGeneral は管理書き込みの制限が
// API全般の制限と独立であることを検証する。
func TestRateLimiter_AdminWriteIndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	admin := rl.AdminWriteMiddleware()(okHandler())

	// 管理書き込みのバースト(1)を使い切る
	if status := doRequest(admin, "203.0.113.1:51000"); status != http.StatusOK {
		t.Fatalf("first admin write: status = %d, want 200", status)
	}
	if status := doRequest(admin, "203.0.113.1:51000"); status != http.StatusTooManyRequests {
		t.Errorf("second admin write: status = %d, want 429", status)
	}

	// API全般は別のバケットなのでまだ通る
	if status := doRequest(general, "203.0.113.1:51000"); status != http.StatusOK {
		t.Errorf("general after admin exhaustion: status = %d, want 200", status)
	}
}

// TestRateLimiter_Cleanup は期限切れエントリが削除されることを検証する。
func TestRateLimiter_Cleanup(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	doRequest(handler, "203.0.113.1:51000")

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Fatalf("limiter count = %d, want 1", got)
	}

	// TTLはCleanupIntervalの2倍
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected expired limiter entry to be cleaned up")
}

// TestClientKey はRemoteAddrからのキー導出を検証する。
func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"IPv4とポート", "203.0.113.1:51000", "203.0.113.1"},
		{"IPv6とポート", "[2001:db8::1]:51000", "2001:db8::1"},
		{"ポートなし", "203.0.113.1", "203.0.113.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := clientKey(req); got != tt.want {
				t.Errorf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
