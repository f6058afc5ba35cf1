package station

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/cache"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/models"
)

// SnapshotSource loads the currently published station snapshot.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) ([]models.Station, error)
}

// SnapshotSourceFunc adapts a function to SnapshotSource.
type SnapshotSourceFunc func(ctx context.Context) ([]models.Station, error)

func (f SnapshotSourceFunc) LoadSnapshot(ctx context.Context) ([]models.Station, error) {
	return f(ctx)
}

// ProximityConfigFrom builds the search settings from application config.
func ProximityConfigFrom(cfg *config.Config) ProximityConfig {
	pc := DefaultProximityConfig()
	pc.MaxRadiusMeters = cfg.NearbyRadiusMeters
	pc.MaxResults = cfg.NearbyMaxResults
	pc.ActiveState = cfg.ActiveState
	return pc
}

// SnapshotFinder answers station lookups from the published snapshot.
type SnapshotFinder struct {
	source     SnapshotSource
	engine     *ProximityEngine
	memCache   *cache.StationCache
	cacheMutex sync.Mutex
}

var _ models.StationFinder = (*SnapshotFinder)(nil)

// NewSnapshotFinder creates a finder. A nil memCache disables caching.
func NewSnapshotFinder(source SnapshotSource, engine *ProximityEngine, memCache *cache.StationCache) *SnapshotFinder {
	return &SnapshotFinder{
		source:   source,
		engine:   engine,
		memCache: memCache,
	}
}

func (f *SnapshotFinder) FindStation(ctx context.Context, stationID string) (*models.Station, error) {
	stations, err := f.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting station list: %w", err)
	}

	for _, s := range stations {
		if s.ID == stationID {
			return &s, nil
		}
	}
	return nil, nil
}

// FindNearestStations runs the proximity search; limit overrides the
// configured result count when positive.
func (f *SnapshotFinder) FindNearestStations(ctx context.Context, lat, lng float64, limit int) ([]models.Station, error) {
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	engine := f.engine
	if limit > 0 && limit != engine.Config().MaxResults {
		var err error
		if engine, err = engine.WithMaxResults(limit); err != nil {
			return nil, err
		}
	}

	stations, err := f.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting station list: %w", err)
	}
	return engine.Nearest(lat, lng, stations)
}

// Snapshot returns the cached snapshot, loading it from the source on a miss.
func (f *SnapshotFinder) Snapshot(ctx context.Context) ([]models.Station, error) {
	if f.memCache == nil {
		return f.source.LoadSnapshot(ctx)
	}

	f.cacheMutex.Lock()
	defer f.cacheMutex.Unlock()

	if stations := f.memCache.GetStations(); stations != nil {
		log.Debug().Msg("Cache HIT for station snapshot")
		return stations, nil
	}
	log.Debug().Msg("Cache MISS for station snapshot, loading table")

	stations, err := f.source.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []models.Station{}
	}

	log.Debug().Int("station_count", len(stations)).Msg("Caching station snapshot")
	f.memCache.SetStations(stations)
	return stations, nil
}
