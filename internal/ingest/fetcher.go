package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/pkg/http/client"
)

// Fetcher downloads the raw station list from the upstream API.
type Fetcher struct {
	httpClient client.Interface
}

func NewFetcher(httpClient client.Interface) *Fetcher {
	return &Fetcher{httpClient: httpClient}
}

// Fetch returns the upstream records in the order the API lists them.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) ([]RawRecord, error) {
	resp, err := f.httpClient.Get(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetching stations: %w", err)
	}

	var records []RawRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	log.Debug().Int("record_count", len(records)).Str("url", sourceURL).Msg("Fetched station records")
	return records, nil
}
