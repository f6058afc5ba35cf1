package main

import (
	"fmt"
	"path/filepath"

	"github.com/swapstation/backend-go/internal/app"
	"github.com/swapstation/backend-go/internal/ingest"
	"github.com/swapstation/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

func crawlCommand() *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Fetch the upstream station list and publish a snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the table to this file instead of the bucket",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Upstream station list URL",
			},
		},
		Action: crawlAction,
	}
}

func crawlAction(c *cli.Context) error {
	cfg := loadConfig()
	if src := c.String("source"); src != "" {
		cfg.SourceURL = src
	}

	var publisher ingest.Publisher
	if out := c.String("out"); out != "" {
		cfg.SnapshotKey = filepath.Base(out)
		publisher = storage.NewFileStore(filepath.Dir(out))
	} else {
		store, err := app.NewS3Store(c.Context, cfg)
		if err != nil {
			return err
		}
		publisher = store
	}

	result, err := app.NewPipeline(cfg, publisher).Run(c.Context)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.App.Writer, "Published %d of %d stations (%d bytes) to %s\n",
		result.Published, result.Fetched, result.Bytes, result.Key)
	return err
}
