package cache

import (
	"github.com/patrickmn/go-cache"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/models"
)

const snapshotKey = "snapshot"

// StationCache keeps the most recently decoded snapshot in memory so warm
// Lambda invocations do not re-read the table on every query.
type StationCache struct {
	c *cache.Cache
}

func NewStationCache(cfg *config.CacheConfig) *StationCache {
	if cfg == nil {
		cfg = config.GetCacheConfig()
	}
	ttl := cfg.GetSnapshotTTL()
	return &StationCache{
		c: cache.New(ttl, 2*ttl),
	}
}

// GetStations returns the cached snapshot or nil when empty or expired.
func (c *StationCache) GetStations() []models.Station {
	v, ok := c.c.Get(snapshotKey)
	if !ok {
		return nil
	}
	return v.([]models.Station)
}

func (c *StationCache) SetStations(stations []models.Station) {
	c.c.Set(snapshotKey, stations, cache.DefaultExpiration)
}

// Invalidate drops the cached snapshot.
func (c *StationCache) Invalidate() {
	c.c.Delete(snapshotKey)
}
