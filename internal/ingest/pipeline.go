package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/storage"
	"github.com/swapstation/backend-go/internal/table"
)

type RecordFetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]RawRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, data []byte, opts storage.PublishOptions) error
}

// Pipeline fetches, normalizes, encodes and publishes one full snapshot.
type Pipeline struct {
	Fetcher     RecordFetcher
	Normalizer  *Normalizer
	Publisher   Publisher
	SourceURL   string
	Destination string
	Options     storage.PublishOptions
}

// RunResult summarizes one ingestion run
type RunResult struct {
	Fetched   int
	Published int
	Bytes     int
	Key       string
}

// Run performs one ingestion. A failed fetch or publish fails the run;
// individual bad records are dropped by the normalizer.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	records, err := p.Fetcher.Fetch(ctx, p.SourceURL)
	if err != nil {
		return nil, err
	}

	stations := p.Normalizer.NormalizeAll(records)

	data, err := table.Encode(stations)
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}

	if err := p.Publisher.Publish(ctx, p.Destination, data, p.Options); err != nil {
		return nil, err
	}

	result := &RunResult{
		Fetched:   len(records),
		Published: len(stations),
		Bytes:     len(data),
		Key:       p.Destination,
	}
	log.Info().
		Int("fetched", result.Fetched).
		Int("published", result.Published).
		Int("bytes", result.Bytes).
		Str("key", result.Key).
		Msg("Published station snapshot")
	return result, nil
}
