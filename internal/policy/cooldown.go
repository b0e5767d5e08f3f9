// Package policy enforces per-user dispatch policy: ban and admin gating
// plus a cooldown between consecutively handled messages.
//
// This file implements a lightweight, in-memory, token-bucket cooldown
// limiter with per-user buckets and opportunistic garbage collection. It is
// designed for simplicity, low overhead, and predictable behavior in a
// single-process deployment.
//
// Features:
//   - Per-user token buckets using golang.org/x/time/rate
//   - Best-effort cleanup of idle buckets to bound memory
//   - Admin bypass handled by callers via the Gate
//
// Notes:
//   - This limiter is process-local; a single bot process owns all traffic,
//     so no distributed coordination is needed.
package policy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle buckets.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown implements a per-user token-bucket limiter where one token
// replenishes every cooldown interval. A user may send at most one handled
// message per interval; messages arriving inside the window are dropped by
// the dispatcher, not queued.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup
// during lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type Cooldown struct {
	limit rate.Limit

	mu       sync.Mutex
	visitors map[int64]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewCooldown constructs a Cooldown with the given minimum interval between
// handled messages per user. A non-positive interval disables limiting
// entirely (Allow always returns true).
func NewCooldown(interval time.Duration) *Cooldown {
	var lim rate.Limit
	if interval > 0 {
		lim = rate.Every(interval)
	} else {
		lim = rate.Inf
	}
	return &Cooldown{
		limit:    lim,
		visitors: make(map[int64]*visitor),
		ttl:      10 * time.Minute, // evict idle entries after TTL
	}
}

// getVisitor returns (and updates) the limiter for userID, creating it if
// absent. It also performs opportunistic GC of idle entries after ~5000
// lookups.
//
// IMPORTANT: Run GC *before* touching the requested visitor so an "old"
// bucket can be evicted even when it's the one being fetched.
func (cd *Cooldown) getVisitor(userID int64) *rate.Limiter {
	now := time.Now()

	cd.mu.Lock()
	cd.cleanupN++
	if cd.cleanupN >= 5000 {
		for k, vv := range cd.visitors {
			if now.Sub(vv.lastSeen) >= cd.ttl {
				delete(cd.visitors, k)
			}
		}
		cd.cleanupN = 0
	}

	if v, ok := cd.visitors[userID]; ok {
		v.lastSeen = now
		lim := v.limiter
		cd.mu.Unlock()
		return lim
	}

	// burst=1: a fresh user gets exactly one immediate token, so the first
	// message is always handled and the next is gated by the interval.
	lim := rate.NewLimiter(cd.limit, 1)
	cd.visitors[userID] = &visitor{limiter: lim, lastSeen: now}
	cd.mu.Unlock()
	return lim
}

// Allow reports whether a message from userID may be handled now, consuming
// a token when it may. Rejected calls do not consume tokens and do not push
// the next allowed time further out.
func (cd *Cooldown) Allow(userID int64) bool {
	return cd.getVisitor(userID).Allow()
}
