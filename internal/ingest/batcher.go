package ingest

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
	"github.com/Clark-Hu/imdb-ratings/internal/metrics"
)

// DefaultBatchSize is the number of rows written per upsert.
const DefaultBatchSize = 500

// RowSource yields rows until io.EOF.
type RowSource interface {
	Next() (domain.Rating, error)
}

// BatchWriter applies one batch atomically.
type BatchWriter interface {
	UpsertBatch(ctx context.Context, batch []domain.Rating) (int64, error)
}

// Stats summarizes a batcher run.
type Stats struct {
	Rows          int
	Batches       int
	FailedRows    int
	FailedBatches int
}

// Written is the number of rows in batches that applied successfully.
func (s Stats) Written() int { return s.Rows - s.FailedRows }

// Batcher groups rows from a RowSource into fixed-size batches and hands each
// one to a BatchWriter. The source is not read while a write is in flight, so
// at most one batch is buffered at a time.
type Batcher struct {
	size    int
	sink    BatchWriter
	logger  *log.Logger
	metrics *metrics.Registry

	// OnBatch, when set, runs after each successful write.
	OnBatch func(ctx context.Context, batch []domain.Rating)
}

func NewBatcher(size int, sink BatchWriter, logger *log.Logger, reg *metrics.Registry) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Batcher{size: size, sink: sink, logger: logger, metrics: reg}
}

// Run drains src. Write failures are logged and counted; only a source error
// other than io.EOF stops the run early.
func (b *Batcher) Run(ctx context.Context, src RowSource) (Stats, error) {
	var stats Stats
	batch := make([]domain.Rating, 0, b.size)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		if b.metrics != nil {
			b.metrics.RowsRead.Inc()
		}

		batch = append(batch, row)
		if len(batch) == b.size {
			b.write(ctx, batch, &stats)
			batch = make([]domain.Rating, 0, b.size)
		}
	}

	if len(batch) > 0 {
		b.write(ctx, batch, &stats)
	}
	return stats, nil
}

func (b *Batcher) write(ctx context.Context, batch []domain.Rating, stats *Stats) {
	offset := stats.Rows
	stats.Rows += len(batch)
	stats.Batches++

	start := time.Now()
	_, err := b.sink.UpsertBatch(ctx, batch)
	if b.metrics != nil {
		b.metrics.BatchLatency.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		werr := &BatchWriteError{Offset: offset, Size: len(batch), Err: err}
		stats.FailedRows += len(batch)
		stats.FailedBatches++
		if b.metrics != nil {
			b.metrics.Batches.WithLabelValues("failed").Inc()
		}
		b.logger.Printf("Error inserting batch: %v", werr)
		return
	}

	if b.metrics != nil {
		b.metrics.Batches.WithLabelValues("ok").Inc()
		b.metrics.RowsWritten.Add(float64(len(batch)))
	}
	if b.OnBatch != nil {
		b.OnBatch(ctx, batch)
	}
	b.logger.Printf("Processed %d records...", stats.Written())
}
