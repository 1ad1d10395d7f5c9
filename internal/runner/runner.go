// Package runner drives batch alignment of image pairs across a bounded
// worker pool. Pairs are independent, so they fan out to workers; a single
// collector tallies outcomes and reports progress.
package runner

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"section-aligner/internal/align"
	"section-aligner/internal/config"
	"section-aligner/internal/search"
)

// Summary aggregates the outcomes of one run.
type Summary struct {
	Total     int
	Accepted  int
	Exhausted int
	Skipped   int // missing counterparts plus load/write failures
}

// Run discovers pairs and aligns them. Per-pair failures are reported and
// skipped; only discovery errors and context cancellation abort the run.
func Run(ctx context.Context, cfg config.Config, log zerolog.Logger) (Summary, error) {
	pairs, missing, err := DiscoverPairs(cfg.ReferenceDir, cfg.TargetDir)
	if err != nil {
		return Summary{}, err
	}
	for _, name := range missing {
		log.Warn().Str("image", name).Msg("no matching target file, skipping")
	}

	aligner := align.New(cfg, log)
	summary := process(ctx, pairs, cfg.Workers, aligner.Process, log)
	summary.Skipped += len(missing)
	summary.Total += len(missing)

	log.Info().
		Int("total", summary.Total).
		Int("accepted", summary.Accepted).
		Int("exhausted", summary.Exhausted).
		Int("skipped", summary.Skipped).
		Msg("run finished")

	return summary, ctx.Err()
}

// process fans pairs out to workers and collects their outcomes. Each
// worker owns its pair's state exclusively; the collector is the only
// goroutine touching the tallies.
func process(ctx context.Context, pairs []align.Pair, workers int, processPair func(align.Pair) align.Outcome, log zerolog.Logger) Summary {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan align.Pair, workers)
	results := make(chan align.Outcome, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case pair, ok := <-jobs:
					if !ok {
						return
					}
					select {
					case results <- processPair(pair):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	summary := Summary{Total: len(pairs)}
	var cwg sync.WaitGroup
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		done := 0
		for out := range results {
			done++
			switch {
			case out.Err != nil:
				summary.Skipped++
				log.Error().Err(out.Err).Str("image", out.Pair.Name).Msg("pair skipped")
			case out.Result.State == search.Accepted:
				summary.Accepted++
			default:
				summary.Exhausted++
			}
			log.Debug().Int("done", done).Int("total", len(pairs)).Msg("progress")
		}
	}()

feed:
	for _, pair := range pairs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- pair:
		}
	}

	close(jobs)
	wg.Wait()
	close(results)
	cwg.Wait()

	return summary
}
