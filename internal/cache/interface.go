package cache

import "time"

// Cache defines the interface for cache backends.
//
// Get applies strict TTL semantics: an expired entry is a miss. GetStale
// returns the most recent value for a key regardless of expiry, which is
// what the aggregator reaches for when a live provider call fails — stale
// is better than empty.
type Cache interface {
	Get(key string) (interface{}, bool)
	GetStale(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}
