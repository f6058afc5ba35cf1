package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/api"
	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/handler"
	"github.com/swapstation/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

const requestsPerMinute = 60

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the fulfillment webhook and stations API locally",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP server port",
				Value:   8080,
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Local station table to serve instead of the bucket",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg := loadConfig()

	var blobs storage.BlobFetcher
	if path := c.String("snapshot"); path != "" {
		cfg.SnapshotKey = filepath.Base(path)
		blobs = storage.NewFileStore(filepath.Dir(path))
	} else {
		store, err := app.NewS3Store(c.Context, cfg)
		if err != nil {
			return err
		}
		blobs = store
	}

	finder, err := app.NewFinder(cfg, nil, blobs)
	if err != nil {
		return err
	}
	sessions, err := app.NewSessions(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	svc := app.NewQueryService(cfg, finder)

	router := newRouter(
		app.NewWebhook(cfg, svc, sessions).HandleRequest,
		handler.NewStationsHandler(finder).HandleRequest,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Int("port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server starting")
	log.Info().Msg("  POST /webhook")
	log.Info().Msg("  GET  /stations?lat=&lng=&limit=")
	log.Info().Msg("  GET  /health")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRouter(webhookFn, stationsFn api.LambdaFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/webhook", api.HTTPHandler(webhookFn))
	r.Get("/stations", api.HTTPHandler(stationsFn))
	return r
}
