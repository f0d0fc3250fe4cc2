// Package dedup suppresses duplicate deliveries of at-least-once messages.
// Consumers key either on an explicit command id or on a payload hash.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers ids for a TTL. The map is bounded: once it reaches
// maxKeys, expired entries are pruned before admitting a new id.
type Deduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxKeys int
	expiry  map[string]time.Time
}

func New(ttl time.Duration, maxKeys int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &Deduper{ttl: ttl, maxKeys: maxKeys, expiry: make(map[string]time.Time, maxKeys)}
}

// ShouldProcess reports whether id was not seen within the TTL and records
// it. An empty id is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if exp, seen := d.expiry[id]; seen && now.Before(exp) {
		return false
	}
	if len(d.expiry) >= d.maxKeys {
		d.prune(now)
	}
	d.expiry[id] = now.Add(d.ttl)
	return true
}

// prune drops every expired entry. When nothing has expired yet the map may
// exceed maxKeys until the next TTL passes; growth stays bounded by the
// message rate over one TTL window.
func (d *Deduper) prune(now time.Time) {
	for id, exp := range d.expiry {
		if now.After(exp) {
			delete(d.expiry, id)
		}
	}
}

// HashPayload derives a dedup key for messages that carry no id of their own.
func HashPayload(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}
