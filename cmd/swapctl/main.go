package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/config"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "swapctl",
		Usage: "Crawl, query and serve battery swap station data",
		Commands: []*cli.Command{
			nearbyCommand(),
			crawlCommand(),
			serveCommand(),
		},
	}
}

// loadConfig reads the environment and sends logs to stderr so that stdout
// stays machine readable.
func loadConfig() *config.Config {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return cfg
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
