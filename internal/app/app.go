// Package app wires configured components for the command entry points.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/analytics"
	"github.com/swapstation/backend-go/internal/cache"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/ingest"
	"github.com/swapstation/backend-go/internal/query"
	"github.com/swapstation/backend-go/internal/render"
	"github.com/swapstation/backend-go/internal/session"
	"github.com/swapstation/backend-go/internal/station"
	"github.com/swapstation/backend-go/internal/storage"
	"github.com/swapstation/backend-go/internal/webhook"
	"github.com/swapstation/backend-go/pkg/http/client"
)

// NewS3Store returns the snapshot bucket store.
func NewS3Store(ctx context.Context, cfg *config.Config) (*storage.S3BlobStore, error) {
	if cfg.SnapshotBucket == "" {
		return nil, fmt.Errorf("SNAPSHOT_BUCKET is not set")
	}
	s3Client, err := storage.NewS3Client(ctx, cfg.S3Endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating S3 client: %w", err)
	}
	return storage.NewS3BlobStore(s3Client, cfg.SnapshotBucket), nil
}

// NewFinder builds a snapshot finder reading cfg.SnapshotKey from blobs.
func NewFinder(cfg *config.Config, cacheCfg *config.CacheConfig, blobs storage.BlobFetcher) (*station.SnapshotFinder, error) {
	engine, err := station.NewProximityEngine(station.ProximityConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating proximity engine: %w", err)
	}

	if cacheCfg == nil {
		cacheCfg = config.GetCacheConfig()
	}
	var memCache *cache.StationCache
	if cacheCfg.EnableSnapshotCache {
		memCache = cache.NewStationCache(cacheCfg)
	}

	source := storage.NewSnapshotSource(blobs, cfg.SnapshotKey)
	return station.NewSnapshotFinder(source, engine, memCache), nil
}

func NewQueryService(cfg *config.Config, finder *station.SnapshotFinder) *query.Service {
	reporter := analytics.New(analytics.Options{
		TrackingID: cfg.AnalyticsTrackingID,
		Timeout:    cfg.HTTPTimeout,
	})
	renderer := render.NewRenderer()
	if cfg.NearbyMaxResults > 0 {
		renderer.MaxCards = cfg.NearbyMaxResults
	}
	return query.NewService(finder, renderer, reporter)
}

// NewSessions builds the guest store and, when a table is configured, the
// DynamoDB store for verified users.
func NewSessions(ctx context.Context, cfg *config.Config, cacheCfg *config.CacheConfig) (session.Selector, error) {
	if cacheCfg == nil {
		cacheCfg = config.GetCacheConfig()
	}

	guest, err := session.NewLRUStore(cacheCfg.GuestSessionLRUSize, cacheCfg.GetGuestSessionTTL())
	if err != nil {
		return session.Selector{}, err
	}
	selector := session.Selector{Guest: guest}

	if cfg.SessionTable == "" {
		log.Info().Msg("No session table configured, verified sessions kept in memory")
		return selector, nil
	}

	dynamoClient, err := session.NewDynamoClient(ctx, cfg.DynamoDBEndpoint)
	if err != nil {
		return session.Selector{}, fmt.Errorf("creating DynamoDB client: %w", err)
	}
	selector.Verified = session.NewDynamoStore(dynamoClient, cfg.SessionTable, cacheCfg.GetVerifiedSessionTTL())
	return selector, nil
}

func NewWebhook(cfg *config.Config, svc *query.Service, sessions session.Selector) *webhook.Handler {
	return webhook.NewHandler(svc, svc.Renderer(), sessions, webhook.Intents{
		AskLocation: cfg.AskLocationIntent,
		Result:      cfg.ResultIntent,
	})
}

// NewPipeline builds the crawler pipeline publishing to publisher.
func NewPipeline(cfg *config.Config, publisher ingest.Publisher) *ingest.Pipeline {
	httpClient := client.New(client.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
	})
	return &ingest.Pipeline{
		Fetcher:     ingest.NewFetcher(httpClient),
		Normalizer:  ingest.NewNormalizer(cfg.Locale),
		Publisher:   publisher,
		SourceURL:   cfg.SourceURL,
		Destination: cfg.SnapshotKey,
		Options: storage.PublishOptions{
			CacheMaxAgeSeconds: cfg.SnapshotMaxAge,
			ContentLanguage:    cfg.ContentLanguage,
		},
	}
}
