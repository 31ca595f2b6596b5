package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeRedis implements the commands the limiter uses
type fakeRedis struct {
	redis.Cmdable

	mu        sync.Mutex
	counts    map[string]int64
	expiring  map[string]bool
	deleted   []string
	err       error
	expireErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		counts:   make(map[string]int64),
		expiring: make(map[string]bool),
	}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.mu.Lock()
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	f.mu.Unlock()
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	if f.expireErr != nil {
		cmd.SetErr(f.expireErr)
		return cmd
	}
	f.mu.Lock()
	f.expiring[key] = true
	f.mu.Unlock()
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	f.mu.Lock()
	for _, key := range keys {
		delete(f.counts, key)
		delete(f.expiring, key)
		f.deleted = append(f.deleted, key)
	}
	f.mu.Unlock()
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeRedis) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second, "ttl", key)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.expiring[key]:
		cmd.SetVal(42 * time.Second)
	case f.counts[key] > 0:
		cmd.SetVal(-1)
	default:
		cmd.SetVal(-2)
	}
	return cmd
}

func limitedServer(client redis.Cmdable, limit int) *Server {
	logger, _ := test.NewNullLogger()
	return newTestServer(exampleStream(), func(c *Config) {
		c.RateLimiter = NewRateLimiter(RateLimiterConfig{
			Client: client,
			Limit:  limit,
			Window: time.Minute,
			Logger: logger,
			Extractor: func(c *gin.Context) string {
				return "client-1"
			},
		})
	})
}

func TestRateLimiter(t *testing.T) {
	s := limitedServer(newFakeRedis(), 2)
	target := "/api/v1/analysis?start_date=2024-10-01"

	for i := 0; i < 2; i++ {
		w := get(t, s, target)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := get(t, s, target)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected remaining 0, got %s", w.Header().Get("X-RateLimit-Remaining"))
	}
	if w.Header().Get("X-RateLimit-Reset") != "42" {
		t.Errorf("Expected reset 42, got %s", w.Header().Get("X-RateLimit-Reset"))
	}

	// Health checks are not limited
	if w := get(t, s, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("Expected /healthz to bypass the limiter, got %d", w.Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("dial tcp: connection refused")
	s := limitedServer(client, 1)

	for i := 0; i < 3; i++ {
		if w := get(t, s, "/api/v1/analysis?start_date=2024-10-01"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with Redis down, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimiterDefaultExtractorIgnoresForwardedFor(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := newTestServer(exampleStream(), func(c *Config) {
		c.RateLimiter = NewRateLimiter(RateLimiterConfig{
			Client: newFakeRedis(),
			Limit:  1,
			Window: time.Minute,
			Logger: logger,
		})
	})

	limited := 0
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis?start_date=2024-10-01", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		s.Handler().ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 4 {
		t.Errorf("Expected 4 of 5 requests limited despite varying X-Forwarded-For, got %d", limited)
	}
}

func TestRateLimiterTrustedProxy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	client := newFakeRedis()
	s := newTestServer(exampleStream(), func(c *Config) {
		// httptest requests come from 192.0.2.1
		c.TrustedProxies = []string{"192.0.2.0/24"}
		c.RateLimiter = NewRateLimiter(RateLimiterConfig{
			Client: client,
			Limit:  1,
			Window: time.Minute,
			Logger: logger,
		})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis?start_date=2024-10-01", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200 for a distinct forwarded client, got %d", i+1, w.Code)
		}
	}
	if client.counts["cnc:rl:203.0.113.1"] != 1 {
		t.Errorf("Expected the counter keyed by the forwarded client, got %v", client.counts)
	}
}

func TestRateLimiterResetsCounterWhenExpireFails(t *testing.T) {
	client := newFakeRedis()
	client.expireErr = errors.New("READONLY")
	s := limitedServer(client, 1)

	for i := 0; i < 3; i++ {
		if w := get(t, s, "/api/v1/analysis?start_date=2024-10-01"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if len(client.deleted) != 3 {
		t.Errorf("Expected the counter deleted after each failed Expire, got %v", client.deleted)
	}
	if _, ok := client.counts["cnc:rl:client-1"]; ok {
		t.Errorf("Expected no counter left without a TTL, got %v", client.counts)
	}
}

func TestRateLimiterRestartsWindowWithoutTTL(t *testing.T) {
	client := newFakeRedis()
	client.counts["cnc:rl:client-1"] = 5
	s := limitedServer(client, 1)

	w := get(t, s, "/api/v1/analysis?start_date=2024-10-01")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if !client.expiring["cnc:rl:client-1"] {
		t.Error("Expected a TTL on a counter that had none")
	}
	if w.Header().Get("X-RateLimit-Reset") != "60" {
		t.Errorf("Expected reset 60, got %s", w.Header().Get("X-RateLimit-Reset"))
	}
}
