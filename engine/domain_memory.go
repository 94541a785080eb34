package engine

import (
	"sync"
	"time"
)

// maxRemembered bounds the number of domains kept at once.
const maxRemembered = 10000

type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last won the race for each domain so
// later fetches can skip the race. Entries expire after ttl.
type DomainMemory struct {
	mu      sync.Mutex
	entries map[string]domainEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewDomainMemory creates a DomainMemory. A non-positive ttl disables it.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{
		entries: make(map[string]domainEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the remembered engine for domain, or "" if unknown or expired.
func (dm *DomainMemory) Get(domain string) string {
	if dm == nil || dm.ttl <= 0 {
		return ""
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	entry, ok := dm.entries[domain]
	if !ok {
		return ""
	}
	if dm.now().After(entry.expiresAt) {
		delete(dm.entries, domain)
		return ""
	}
	return entry.engineName
}

// Set records the engine that succeeded for domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	if dm == nil || dm.ttl <= 0 || domain == "" {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if len(dm.entries) >= maxRemembered {
		dm.pruneLocked()
	}
	dm.entries[domain] = domainEntry{engineName: engineName, expiresAt: dm.now().Add(dm.ttl)}
}

// Delete forgets domain, e.g. after the remembered engine failed.
func (dm *DomainMemory) Delete(domain string) {
	if dm == nil {
		return
	}
	dm.mu.Lock()
	delete(dm.entries, domain)
	dm.mu.Unlock()
}

// Len returns the number of remembered domains, expired ones included.
func (dm *DomainMemory) Len() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.entries)
}

// pruneLocked drops expired entries, and if the map is still full, every
// entry. Caller must hold dm.mu.
func (dm *DomainMemory) pruneLocked() {
	now := dm.now()
	for k, e := range dm.entries {
		if now.After(e.expiresAt) {
			delete(dm.entries, k)
		}
	}
	if len(dm.entries) >= maxRemembered {
		clear(dm.entries)
	}
}
