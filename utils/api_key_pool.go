package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrNoAvailableKeys is returned when every key is cooling down.
var ErrNoAvailableKeys = errors.New("no available API keys")

// APIKeyPool rotates provider credentials and temporarily benches keys that fail.
type APIKeyPool struct {
	keys        []string
	cooldown    time.Duration
	usageCounts map[string]int
	blacklist   map[string]time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// KeyPoolStats is a point-in-time view of the pool.
type KeyPoolStats struct {
	Total       int
	Available   int
	Blacklisted int
}

// NewAPIKeyPool creates a new API key pool; nil when keys is empty.
func NewAPIKeyPool(keys []string, cooldown time.Duration) *APIKeyPool {
	if len(keys) == 0 {
		return nil
	}

	return &APIKeyPool{
		keys:        append([]string(nil), keys...),
		cooldown:    cooldown,
		usageCounts: make(map[string]int),
		blacklist:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Next returns the least-used key that is not cooling down.
// Ties go to the key listed first.
func (p *APIKeyPool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cleanBlacklist()

	selected := ""
	for _, key := range p.keys {
		if _, benched := p.blacklist[key]; benched {
			continue
		}
		if selected == "" || p.usageCounts[key] < p.usageCounts[selected] {
			selected = key
		}
	}
	if selected == "" {
		return "", ErrNoAvailableKeys
	}

	p.usageCounts[selected]++
	return selected, nil
}

// MarkSuccess lifts any cool-down on key.
func (p *APIKeyPool) MarkSuccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blacklist, key)
}

// MarkFailed benches key for the pool's cool-down period.
func (p *APIKeyPool) MarkFailed(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklist[key] = p.now().Add(p.cooldown)
}

// Stats returns usage statistics
func (p *APIKeyPool) Stats() KeyPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cleanBlacklist()
	return KeyPoolStats{
		Total:       len(p.keys),
		Available:   len(p.keys) - len(p.blacklist),
		Blacklisted: len(p.blacklist),
	}
}

// cleanBlacklist removes expired entries from blacklist
// Must be called with lock held
func (p *APIKeyPool) cleanBlacklist() {
	now := p.now()
	for key, expireTime := range p.blacklist {
		if !now.Before(expireTime) {
			delete(p.blacklist, key)
		}
	}
}
