package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/api"
	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/swapstation/backend-go/internal/handler"
)

var (
	lambdaStart     = lambda.Start // Allow mocking of lambda.Start in tests
	stationsHandler *handler.StationsHandler
	setupErr        error
	setupOnce       sync.Once
)

func setup(ctx context.Context) {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	store, err := app.NewS3Store(ctx, cfg)
	if err != nil {
		setupErr = err
		return
	}

	finder, err := app.NewFinder(cfg, nil, store)
	if err != nil {
		setupErr = err
		return
	}
	stationsHandler = handler.NewStationsHandler(finder)
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	setupOnce.Do(func() { setup(ctx) })
	if setupErr != nil {
		log.Error().Err(setupErr).Msg("Stations handler is not configured")
		return api.Error("Service unavailable", http.StatusServiceUnavailable)
	}
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
