package cache

import "time"

// CacheService is the read-through cache used by the catalog.
type CacheService interface {
	// Get returns the value and true on a hit.
	Get(key string) (interface{}, bool)

	Set(key string, value interface{}, duration time.Duration)

	Delete(key string)

	// DeletePrefix drops every key starting with prefix and reports how many went.
	DeletePrefix(prefix string) int

	// Flush removes all items
	Flush()
}
