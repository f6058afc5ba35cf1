package storage

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/models"
	"github.com/swapstation/backend-go/internal/table"
)

type BlobFetcher interface {
	FetchBlob(ctx context.Context, key string) ([]byte, error)
}

// SnapshotSource reads and decodes the published station table.
type SnapshotSource struct {
	store BlobFetcher
	key   string
}

func NewSnapshotSource(store BlobFetcher, key string) *SnapshotSource {
	return &SnapshotSource{store: store, key: key}
}

// LoadSnapshot fails closed: a storage error or a malformed table is returned
// as is and no stations are served.
func (s *SnapshotSource) LoadSnapshot(ctx context.Context) ([]models.Station, error) {
	data, err := s.store.FetchBlob(ctx, s.key)
	if err != nil {
		return nil, err
	}

	stations, err := table.Decode(data)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("key", s.key).Int("station_count", len(stations)).Msg("Loaded station snapshot")
	return stations, nil
}
