package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gachapon-labs/gachapon/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_AllowAll(t *testing.T) {
	handler := NewCORS([]string{"*"}).Handler(okHandler())

	t.Run("EchoesOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		req.Header.Set("Origin", "https://storefront.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "https://storefront.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("NoOriginNoHeaders", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		_, present := rec.Header()["Access-Control-Allow-Origin"]
		assert.False(t, present, "non-CORS request should get no CORS headers")
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/games", nil)
		req.Header.Set("Origin", "https://storefront.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestCORS_AllowList(t *testing.T) {
	handler := NewCORS([]string{"https://storefront.example"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter_CleanupDropsOversizedMap(t *testing.T) {
	rl := NewRateLimiter(100, 100, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 10*time.Millisecond)

	for i := 0; i <= 10000; i++ {
		rl.getLimiter(fmt.Sprintf("caller-%d", i))
	}

	require.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.limiters) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRateLimiter_CleanupStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter(100, 100, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx, 50*time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	for i := 0; i <= 10000; i++ {
		rl.getLimiter(fmt.Sprintf("caller-%d", i))
	}
	time.Sleep(120 * time.Millisecond)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Greater(t, len(rl.limiters), 10000, "cleanup should not run after cancellation")
}
