package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/api"
	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/webhook"
)

// The Lambda environment freezes once the handler returns, so analytics
// posts are drained before replying.
const flushTimeout = 2 * time.Second

var (
	lambdaStart    = lambda.Start // Allow mocking of lambda.Start in tests
	webhookHandler *webhook.Handler
	flushEvents    func(ctx context.Context) bool
	setupErr       error
	setupOnce      sync.Once
)

func setup(ctx context.Context) {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()
	cacheCfg := config.GetCacheConfig()

	store, err := app.NewS3Store(ctx, cfg)
	if err != nil {
		setupErr = err
		return
	}
	finder, err := app.NewFinder(cfg, cacheCfg, store)
	if err != nil {
		setupErr = err
		return
	}
	sessions, err := app.NewSessions(ctx, cfg, cacheCfg)
	if err != nil {
		setupErr = err
		return
	}

	svc := app.NewQueryService(cfg, finder)
	webhookHandler = app.NewWebhook(cfg, svc, sessions)
	flushEvents = svc.Flush
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	setupOnce.Do(func() { setup(ctx) })
	if setupErr != nil {
		log.Error().Err(setupErr).Msg("Fulfillment handler is not configured")
		return api.Error("Service unavailable", http.StatusServiceUnavailable)
	}
	resp, err := webhookHandler.HandleRequest(ctx, request)
	if flushEvents != nil {
		flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
		if !flushEvents(flushCtx) {
			log.Warn().Msg("Analytics events still in flight after response")
		}
		cancel()
	}
	return resp, err
}

func main() {
	lambdaStart(handleRequest)
}
