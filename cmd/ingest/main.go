// Command ingest refreshes the imdb_ratings table from the IMDb ratings dump.
// It runs once and exits 0 on completion or 1 on a fatal error.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/Clark-Hu/imdb-ratings/internal/cache"
	"github.com/Clark-Hu/imdb-ratings/internal/config"
	"github.com/Clark-Hu/imdb-ratings/internal/dataset"
	"github.com/Clark-Hu/imdb-ratings/internal/ingest"
	"github.com/Clark-Hu/imdb-ratings/internal/metrics"
	"github.com/Clark-Hu/imdb-ratings/internal/repository"
	"github.com/Clark-Hu/imdb-ratings/internal/store"
)

func main() {
	os.Exit(run(os.Stdout))
}

// run performs one refresh and returns the process exit status.
func run(out io.Writer) int {
	logger := log.New(out, "[imdb-ingest] ", log.LstdFlags)

	cfg, err := config.LoadIngest()
	if err != nil {
		logger.Printf("Error updating data: %v", err)
		return 1
	}

	// The job is not cancellable once started; the scheduler owns retries.
	ctx := context.Background()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DB.URL, store.OptionsFromConfig(cfg.DB, logger))
	if err != nil {
		logger.Printf("Error updating data: %v", err)
		return 1
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	reg.MustRegister(st.Collector())

	job := &ingest.Job{
		Fetcher:   dataset.NewHTTPFetcher(time.Duration(cfg.DatasetTimeoutSecs)*time.Second, logger),
		Store:     repository.New(st).Ratings,
		Metrics:   reg,
		Logger:    logger,
		SourceURL: cfg.DatasetURL,
		TempDir:   cfg.TempDir,
		BatchSize: cfg.BatchSize,
	}

	if cfg.DB.RedisURL != "" {
		client, err := cache.Open(dbCtx, cfg.DB.RedisURL)
		if err != nil {
			// Stale cache entries expire on their own; do not fail the refresh.
			logger.Printf("redis unavailable, skipping cache invalidation: %v", err)
		} else {
			defer client.Close()
			job.Cache = cache.NewRedisCache(client, time.Duration(cfg.DB.CacheTTLSecs)*time.Second)
		}
	}

	_, runErr := job.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := reg.Push(cfg.PushgatewayURL, "imdb_ingest"); err != nil {
			logger.Printf("push metrics: %v", err)
		}
	}

	if runErr != nil {
		logger.Printf("Error updating data: %v", runErr)
		return 1
	}
	logger.Println("Data update completed successfully")
	return 0
}
