// Command server runs the image scrape job server: job submission with
// admission control, live progress streaming, persistent history and
// crash recovery of interrupted jobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pixfetch/pixfetch/internal/config"
	"github.com/pixfetch/pixfetch/internal/platform/logger"
)

func main() {
	clearHistory := flag.Bool("clear-history", false, "wipe the persisted job history and exit")
	flag.Parse()

	if err := run(*clearHistory); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(clearHistory bool) error {
	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	app, err := newApplication(cfg, log)
	if err != nil {
		return err
	}

	if clearHistory {
		defer app.cleanup()
		if err := app.history.Clear(context.Background()); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		log.Info("history cleared")
		return nil
	}

	return app.startHTTPServer(context.Background())
}
