// Package cache stores query results per session with timestamp expiry.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Store is the session result cache. Implementations are best-effort: a
// failing store must never fail the request that used it.
type Store interface {
	// Get returns the cached value for key if it exists and is younger than
	// maxAge. Stale entries are evicted and reported as absent.
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool)

	// Set stores value under key. The write is atomic at entry level.
	Set(ctx context.Context, key string, value []byte) error

	// Clear drops every entry belonging to one session.
	Clear(ctx context.Context, sessionID string) error
}

// envelope is the stored entry: the value plus its write time, so expiry
// never depends on backend TTL behavior alone.
type envelope struct {
	Timestamp time.Time `json:"timestamp"`
	Value     []byte    `json:"value"`
}

// Fingerprint derives a deterministic cache key component from the query
// identity. Wall-clock time never participates, so identical queries in the
// same session always collide.
func Fingerprint(table, filters, sessionID string) string {
	sum := md5.Sum([]byte(table + "|" + filters + "|" + sessionID))
	return hex.EncodeToString(sum[:])
}

// Key builds the full storage key: prefix, session segment, fingerprint. The
// session segment is what makes per-session Clear possible.
func Key(prefix, sessionID, fingerprint string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, sessionID, fingerprint)
}
