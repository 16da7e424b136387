package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	t.Run("burst then reject", func(t *testing.T) {
		l := NewLimiter(5, time.Minute, 5)
		defer l.Close()
		for i := range 5 {
			res := l.Allow("ip:1.2.3.4:auth")
			if !res.Allowed {
				t.Fatalf("request %d rejected", i+1)
			}
			if res.Limit != 5 {
				t.Errorf("Limit = %d, want 5", res.Limit)
			}
		}
		res := l.Allow("ip:1.2.3.4:auth")
		if res.Allowed {
			t.Fatal("6th request allowed")
		}
		if res.RetryAfter < time.Second {
			t.Errorf("RetryAfter = %v", res.RetryAfter)
		}
		if res.Remaining != 0 {
			t.Errorf("Remaining = %d", res.Remaining)
		}
	})
	t.Run("keys are independent", func(t *testing.T) {
		l := NewLimiter(1, time.Minute, 1)
		defer l.Close()
		if !l.Allow("a").Allowed {
			t.Fatal("a rejected")
		}
		if l.Allow("a").Allowed {
			t.Fatal("a allowed twice")
		}
		if !l.Allow("b").Allowed {
			t.Fatal("b rejected")
		}
	})
	t.Run("cleanup", func(t *testing.T) {
		l := NewLimiter(60, time.Minute, 10)
		defer l.Close()
		l.Allow("idle")
		l.cleanup(time.Now())
		if got := l.size(); got != 1 {
			t.Fatalf("size after early cleanup = %d, want 1", got)
		}
		l.cleanup(time.Now().Add(2 * staleAfter))
		if got := l.size(); got != 0 {
			t.Fatalf("size after cleanup = %d, want 0", got)
		}
	})
	t.Run("close twice", func(t *testing.T) {
		l := NewLimiter(1, time.Minute, 1)
		l.Close()
		l.Close()
	})
}

func TestLimiters(t *testing.T) {
	l := New(5, 60)
	defer l.Close()
	tests := []struct {
		name   string
		auth   bool
		method string
		path   string
		want   *Tier
	}{
		{"login", false, http.MethodPost, "/api/auth/login", l.Auth},
		{"register", false, http.MethodPost, "/api/auth/register", l.Auth},
		{"health", false, http.MethodGet, "/api/health", nil},
		{"unauth get", false, http.MethodGet, "/api/notes", nil},
		{"create note", true, http.MethodPost, "/api/notes", l.Write},
		{"delete note", true, http.MethodDelete, "/api/notes/1", l.Write},
		{"list notes", true, http.MethodGet, "/api/notes", nil},
		{"logout", true, http.MethodPost, "/api/auth/logout", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Tier
			if tt.auth {
				got = l.MatchAuth(tt.method, tt.path)
			} else {
				got = l.MatchUnauth(tt.method, tt.path)
			}
			if got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
	if l.Write.Limiter.burst != 10 {
		t.Errorf("write burst = %d, want 10", l.Write.Limiter.burst)
	}

	t.Run("disabled", func(t *testing.T) {
		l := New(0, 0)
		defer l.Close()
		if l.MatchUnauth(http.MethodPost, "/api/auth/login") != nil {
			t.Error("auth tier should be disabled")
		}
		if l.MatchAuth(http.MethodPost, "/api/notes") != nil {
			t.Error("write tier should be disabled")
		}
	})
	t.Run("nil", func(t *testing.T) {
		var l *Limiters
		if l.MatchUnauth(http.MethodPost, "/api/auth/login") != nil || l.MatchAuth(http.MethodPost, "/api/notes") != nil {
			t.Error("nil Limiters should not limit")
		}
		l.Close()
	})
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey(ScopeIP, "1.2.3.4", "auth"); got != "ip:1.2.3.4:auth" {
		t.Errorf("BuildKey() = %q", got)
	}
	if got := BuildKey(ScopeUser, UserKey(42), "write"); got != "user:42:write" {
		t.Errorf("BuildKey() = %q", got)
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewResponseWriter(rec, Result{Allowed: true, Limit: 60, Remaining: 59, ResetAt: time.Unix(1700000000, 0)})
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Fatal(err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
			t.Errorf("X-RateLimit-Limit = %q", got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != "59" {
			t.Errorf("X-RateLimit-Remaining = %q", got)
		}
		if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700000000" {
			t.Errorf("X-RateLimit-Reset = %q", got)
		}
		if got := rec.Header().Get("Retry-After"); got != "" {
			t.Errorf("Retry-After = %q", got)
		}
	})
	t.Run("rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewResponseWriter(rec, Result{RetryAfter: 12 * time.Second})
		w.WriteHeader(http.StatusTooManyRequests)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("Code = %d", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != "12" {
			t.Errorf("Retry-After = %q", got)
		}
		if w.Unwrap() != rec {
			t.Error("Unwrap() mismatch")
		}
	})
}
