package main

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/query"
	"github.com/swapstation/backend-go/internal/render"
	"github.com/swapstation/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

var geocode geocoder = nominatimGeocode

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "Find the swap stations nearest to a point",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "lng",
				Usage: "Longitude of the location",
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Place name to geocode instead of --lat/--lng",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Local station table to read instead of the bucket",
			},
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "Snapshot bucket",
				EnvVars: []string{"SNAPSHOT_BUCKET"},
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "Snapshot object key",
			},
			&cli.BoolFlag{
				Name:  "cards",
				Usage: "Render navigation cards as a rich surface would",
			},
		},
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	cfg := loadConfig()

	lat, lng := c.Float64("lat"), c.Float64("lng")
	if loc := c.String("location"); loc != "" {
		var display string
		var err error
		if lat, lng, display, err = geocode(loc); err != nil {
			return err
		}
		log.Info().Str("location", display).Float64("lat", lat).Float64("lng", lng).Msg("Location found")
	} else if !c.IsSet("lat") || !c.IsSet("lng") {
		return errors.New("location or latitude and longitude are required")
	}

	var blobs storage.BlobFetcher
	if path := c.String("snapshot"); path != "" {
		cfg.SnapshotKey = filepath.Base(path)
		blobs = storage.NewFileStore(filepath.Dir(path))
	} else {
		if bucket := c.String("bucket"); bucket != "" {
			cfg.SnapshotBucket = bucket
		}
		if key := c.String("key"); key != "" {
			cfg.SnapshotKey = key
		}
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

	result, err := app.NewQueryService(cfg, finder).Nearby(c.Context, query.Query{
		Lat:          lat,
		Lng:          lng,
		Capabilities: render.Capabilities{SupportsRichCards: c.Bool("cards")},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
