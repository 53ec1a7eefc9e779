package series

import (
	"time"

	"golang.org/x/text/language"
)

// ManagerConfig holds configuration options for the series manager
type ManagerConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// SummaryLanguage selects the language of Manager.Summary.
	SummaryLanguage language.Tag
}

// DefaultManagerConfig provides sensible defaults for production use
var DefaultManagerConfig = ManagerConfig{
	CacheEnabled:    true,
	CacheConfig:     DefaultCacheConfig,
	SummaryLanguage: language.English,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = ManagerConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             2 * time.Minute,
		MaxEntries:      64,
		CleanupInterval: time.Minute,
	},
	SummaryLanguage: language.English,
}

// DisabledCacheConfig turns off caching entirely; every generation reads the
// template from storage.
var DisabledCacheConfig = ManagerConfig{
	CacheEnabled:    false,
	CacheConfig:     CacheConfig{}, // Not used
	SummaryLanguage: language.English,
}
