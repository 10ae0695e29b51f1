package ingest

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Clark-Hu/imdb-ratings/internal/dataset"
	"github.com/Clark-Hu/imdb-ratings/internal/domain"
	"github.com/Clark-Hu/imdb-ratings/internal/metrics"
)

// Store is the persistence surface the job needs.
type Store interface {
	BatchWriter
	EnsureSchema(ctx context.Context) error
}

// Invalidator drops cached lookups for ids that were just rewritten.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...string) error
}

// Job is one full refresh of the ratings table from a remote dataset.
type Job struct {
	Fetcher   dataset.Fetcher
	Store     Store
	Cache     Invalidator
	Metrics   *metrics.Registry
	Logger    *log.Logger
	SourceURL string
	TempDir   string
	BatchSize int
}

// Run downloads, decodes and upserts the dataset. Transfer, schema and decode
// failures abort the run; failed batches do not. The downloaded file is
// removed on every return path.
func (j *Job) Run(ctx context.Context) (Stats, error) {
	logger := j.Logger
	if logger == nil {
		logger = log.Default()
	}
	runID := uuid.NewString()
	logger = log.New(logger.Writer(), logger.Prefix()+"run="+runID[:8]+" ", logger.Flags())

	dir := j.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	workDir, err := os.MkdirTemp(dir, "imdb-ratings-")
	if err != nil {
		return Stats{}, errors.Wrap(err, "creating work dir")
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Printf("ingest: remove %s: %v", workDir, err)
		}
	}()
	path := filepath.Join(workDir, "title.ratings.tsv.gz")

	logger.Println("Downloading IMDb ratings dataset...")
	if err := j.Fetcher.Fetch(ctx, j.SourceURL, path); err != nil {
		return Stats{}, err
	}

	logger.Println("Creating table...")
	if err := j.Store.EnsureSchema(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "preparing table")
	}

	logger.Println("Processing data...")
	dec, err := OpenDecoder(path)
	if err != nil {
		return Stats{}, err
	}
	defer dec.Close()

	batcher := NewBatcher(j.BatchSize, j.Store, logger, j.Metrics)
	if j.Cache != nil {
		batcher.OnBatch = func(ctx context.Context, batch []domain.Rating) {
			ids := make([]string, len(batch))
			for i, r := range batch {
				ids[i] = r.ID
			}
			if err := j.Cache.Invalidate(ctx, ids...); err != nil {
				logger.Printf("ingest: cache invalidation failed: %v", err)
			}
		}
	}

	stats, err := batcher.Run(ctx, dec)
	if j.Metrics != nil {
		j.Metrics.RowsSkipped.Add(float64(dec.Skipped()))
	}
	if err != nil {
		return stats, err
	}

	if j.Metrics != nil {
		j.Metrics.LastRunRows.Set(float64(stats.Written()))
	}
	logger.Printf("Completed! Total records: %d", stats.Written())
	if stats.FailedBatches > 0 {
		logger.Printf("ingest: %d of %d batches failed (%d rows)", stats.FailedBatches, stats.Batches, stats.FailedRows)
	}
	if skipped := dec.Skipped(); skipped > 0 {
		logger.Printf("ingest: skipped %d malformed rows", skipped)
	}
	return stats, nil
}
