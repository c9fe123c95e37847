package fetcher

import (
	"sync"
	"time"
)

// Fetch tiers remembered per host.
const (
	tierNative = "native"
	tierCurl   = "curl"
)

// hostEntry stores the preferred fetch tier for a host with a TTL.
type hostEntry struct {
	tier      string
	expiresAt time.Time
}

// HostMemory remembers which fetch tier worked for each host, so repeat
// fetches against a curl-only origin skip the failing native attempts.
// Entries expire after the configured TTL.
type HostMemory struct {
	store sync.Map // host (string) -> *hostEntry
	ttl   time.Duration
}

// NewHostMemory creates a HostMemory with the given TTL.
func NewHostMemory(ttl time.Duration) *HostMemory {
	return &HostMemory{ttl: ttl}
}

// Get returns the remembered tier for a host, or "" if not found / expired.
func (m *HostMemory) Get(host string) string {
	val, ok := m.store.Load(host)
	if !ok {
		return ""
	}
	entry := val.(*hostEntry)
	if time.Now().After(entry.expiresAt) {
		m.store.Delete(host)
		return ""
	}
	return entry.tier
}

// Set records which tier succeeded for a host.
func (m *HostMemory) Set(host, tier string) {
	m.store.Store(host, &hostEntry{
		tier:      tier,
		expiresAt: time.Now().Add(m.ttl),
	})
}

// Delete removes the memory for a host (e.g. after the remembered tier fails).
func (m *HostMemory) Delete(host string) {
	m.store.Delete(host)
}
