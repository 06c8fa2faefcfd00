package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/payments-engine/internal/ledger"
	"github.com/dvloznov/payments-engine/internal/logger"
)

// Options tunes a pipeline run. Zero values select the defaults.
type Options struct {
	// Capacity is the number of parsed events buffered between reader and processor.
	Capacity int
	// ChunkSize is the read buffer size in bytes.
	ChunkSize int
}

// Result summarizes a finished run.
type Result struct {
	Read      ReadStats
	Processed ledger.Stats
	Duration  time.Duration
}

// Run streams src through a Reader and proc connected by a bounded Channel.
//
// The processor always drains every event enqueued before the reader stopped,
// so proc's snapshot reflects all applied events even when Run fails. Any
// returned error wraps an *IngestionError.
func Run(ctx context.Context, src io.Reader, proc *ledger.Processor, opts Options) (Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	ch := NewChannel(opts.Capacity)
	readerOpts := []ReaderOption{WithReaderLogger(log)}
	if opts.ChunkSize > 0 {
		readerOpts = append(readerOpts, WithChunkSize(opts.ChunkSize))
	}
	reader := NewReader(src, readerOpts...)

	log.Debug().Int("capacity", ch.Cap()).Int("chunk_size", reader.chunkSize).Msg("Starting pipeline")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := reader.Run(gctx, ch); err != nil {
			return fmt.Errorf("Run: reader: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		proc.Run(ch.Events())
		return nil
	})
	err := g.Wait()

	res := Result{
		Read:      reader.Stats(),
		Processed: proc.Stats(),
		Duration:  time.Since(start),
	}
	logSummary(log, res, err)

	return res, err
}

// logSummary reports counters only; the caller owns reporting err.
func logSummary(log zerolog.Logger, res Result, err error) {
	log.Info().
		Bool("failed", err != nil).
		Int("records", res.Read.Records).
		Int("malformed", res.Read.Malformed).
		Int("applied", res.Processed.Applied).
		Int("ignored", res.Processed.IgnoredTotal()).
		Dur("duration", res.Duration).
		Msg("Pipeline finished")
}
