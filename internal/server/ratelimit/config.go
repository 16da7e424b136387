// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses authenticated user ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Limiters holds the tiers applied to API requests. A nil tier is unlimited.
type Limiters struct {
	Auth  *Tier // sign-in attempts, per IP
	Write *Tier // note changes, per user
}

// New creates the limiters from requests-per-minute settings. 0 disables a tier.
func New(authPerMin, writePerMin int) *Limiters {
	l := &Limiters{}
	if authPerMin > 0 {
		l.Auth = &Tier{Name: "auth", Limiter: NewLimiter(authPerMin, time.Minute, authPerMin), Scope: ScopeIP}
	}
	if writePerMin > 0 {
		l.Write = &Tier{Name: "write", Limiter: NewLimiter(writePerMin, time.Minute, max(writePerMin/6, 1)), Scope: ScopeUser}
	}
	return l
}

// MatchUnauth returns the tier for an unauthenticated request, or nil.
func (l *Limiters) MatchUnauth(method, path string) *Tier {
	if l == nil || method != http.MethodPost {
		return nil
	}
	if path == "/api/auth/login" || path == "/api/auth/register" {
		return l.Auth
	}
	return nil
}

// MatchAuth returns the tier for an authenticated request, or nil.
func (l *Limiters) MatchAuth(method, path string) *Tier {
	if l == nil {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodDelete:
		if path == "/api/auth/logout" {
			return nil
		}
		return l.Write
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (l *Limiters) Close() {
	if l == nil {
		return
	}
	for _, t := range []*Tier{l.Auth, l.Write} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}

// BuildKey creates a rate limit bucket key from scope, identifier, and tier name.
func BuildKey(scope Scope, identifier, tierName string) string {
	prefix := "unknown"
	switch scope {
	case ScopeIP:
		prefix = "ip"
	case ScopeUser:
		prefix = "user"
	}
	return prefix + ":" + identifier + ":" + tierName
}

// UserKey formats a user id as a rate limit identifier.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
