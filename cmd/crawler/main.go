package main

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/ingest"
)

type runner interface {
	Run(ctx context.Context) (*ingest.RunResult, error)
}

var (
	lambdaStart = lambda.Start // Allow mocking of lambda.Start in tests
	pipeline    runner
	setupErr    error
	setupOnce   sync.Once
)

func setup(ctx context.Context) {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	store, err := app.NewS3Store(ctx, cfg)
	if err != nil {
		setupErr = err
		return
	}
	pipeline = app.NewPipeline(cfg, store)
}

// handleEvent runs one crawl per scheduled event. Returning the error lets
// Lambda record the failed invocation; the previous snapshot stays published.
func handleEvent(ctx context.Context, event events.CloudWatchEvent) (*ingest.RunResult, error) {
	setupOnce.Do(func() { setup(ctx) })
	if setupErr != nil {
		log.Error().Err(setupErr).Msg("Crawler is not configured")
		return nil, setupErr
	}

	log.Info().Str("event_id", event.ID).Time("scheduled", event.Time).Msg("Starting crawl")
	result, err := pipeline.Run(ctx)
	if err != nil {
		event := log.Error().Err(err)
		var obj zerolog.LogObjectMarshaler
		if errors.As(err, &obj) {
			event = event.EmbedObject(obj)
		}
		event.Msg("Crawl failed")
		return nil, err
	}
	return result, nil
}

func main() {
	lambdaStart(handleEvent)
}
