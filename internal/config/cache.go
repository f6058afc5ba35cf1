package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig holds all cache-related configuration
type CacheConfig struct {
	// In-memory snapshot cache
	SnapshotTTLSeconds int

	// Guest (unverified) conversation storage
	GuestSessionLRUSize    int
	GuestSessionTTLMinutes int

	// Verified user storage in DynamoDB
	VerifiedSessionTTLDays int

	EnableSnapshotCache bool
}

const (
	defaultSnapshotTTLSeconds     = 30
	defaultGuestSessionLRUSize    = 1000
	defaultGuestSessionTTLMinutes = 30
	defaultVerifiedSessionTTLDays = 30
)

// GetCacheConfig returns the cache configuration from environment variables or defaults
func GetCacheConfig() *CacheConfig {
	config := &CacheConfig{
		SnapshotTTLSeconds:     getEnvInt("CACHE_SNAPSHOT_TTL_SECONDS", defaultSnapshotTTLSeconds),
		GuestSessionLRUSize:    getEnvInt("CACHE_GUEST_SESSION_LRU_SIZE", defaultGuestSessionLRUSize),
		GuestSessionTTLMinutes: getEnvInt("CACHE_GUEST_SESSION_TTL_MINUTES", defaultGuestSessionTTLMinutes),
		VerifiedSessionTTLDays: getEnvInt("CACHE_VERIFIED_SESSION_TTL_DAYS", defaultVerifiedSessionTTLDays),
		EnableSnapshotCache:    getEnvBool("CACHE_ENABLE_SNAPSHOT", true),
	}

	log.Debug().
		Int("SnapshotTTLSeconds", config.SnapshotTTLSeconds).
		Int("GuestSessionLRUSize", config.GuestSessionLRUSize).
		Int("GuestSessionTTLMinutes", config.GuestSessionTTLMinutes).
		Int("VerifiedSessionTTLDays", config.VerifiedSessionTTLDays).
		Bool("EnableSnapshotCache", config.EnableSnapshotCache).
		Msg("Cache configuration loaded")

	return config
}

func (c *CacheConfig) GetSnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

func (c *CacheConfig) GetGuestSessionTTL() time.Duration {
	return time.Duration(c.GuestSessionTTLMinutes) * time.Minute
}

func (c *CacheConfig) GetVerifiedSessionTTL() time.Duration {
	return time.Duration(c.VerifiedSessionTTLDays) * 24 * time.Hour
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
