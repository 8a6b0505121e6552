package authapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// loginLimiter throttles failed logins with a sliding window per key. Keys
// are client IPs and normalized login identifiers, so an attacker can be
// slowed both per-source and per-target-account. Only failures count; a
// successful login clears the key.
type loginLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	failures map[string][]time.Time
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		max:      max,
		window:   window,
		failures: make(map[string][]time.Time),
	}
}

// Blocked reports whether the key has exhausted its failure budget and, if
// so, how long until the oldest failure ages out.
func (l *loginLimiter) Blocked(key string, now time.Time) (bool, time.Duration) {
	if l == nil || key == "" || l.max <= 0 {
		return false, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, now)
	if len(kept) < l.max {
		return false, 0
	}
	return true, kept[0].Add(l.window).Sub(now)
}

// RecordFailure counts one failed attempt against the key.
func (l *loginLimiter) RecordFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key] = append(l.prune(key, now), now)
}

// Clear forgets the key after a successful login.
func (l *loginLimiter) Clear(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// prune drops entries older than the window. Caller holds the lock.
func (l *loginLimiter) prune(key string, now time.Time) []time.Time {
	cut := now.Add(-l.window)
	var kept []time.Time
	for _, at := range l.failures[key] {
		if at.After(cut) {
			kept = append(kept, at)
		}
	}
	if kept == nil {
		delete(l.failures, key)
	} else {
		l.failures[key] = kept
	}
	return kept
}

func ipKey(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return "ip:" + ip.String()
}

func identifierKey(identifier string) string {
	if identifier == "" {
		return ""
	}
	return "id:" + identifier
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds())+1, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
