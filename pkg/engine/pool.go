package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/simonhull/norms/pkg/cache"
	"github.com/simonhull/norms/pkg/extract"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/roles"
)

// extractJob is one file to fingerprint under one role
type extractJob struct {
	index int
	path  string
	key   roles.Key
	lang  string
}

// extractResult holds the record of a job, or why it has none
type extractResult struct {
	index  int
	record pattern.Record
	err    error
}

// extractAll runs jobs on a bounded worker pool. Results come back in job
// order; a cancelled context discards them all.
func (e *Engine) extractAll(ctx context.Context, root string, ext *extract.Extractor, jobs []extractJob) ([]extractResult, error) {
	if len(jobs) == 0 {
		return nil, ctx.Err()
	}

	numWorkers := e.workers()
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	jobCh := make(chan extractJob, len(jobs))
	results := make(chan extractResult, len(jobs))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go e.extractWorker(ctx, root, ext, jobCh, results, &wg)
	}

	// Send jobs
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobCh <- job:
			}
		}
	}()

	// Wait for workers to finish
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]extractResult, len(jobs))
	for result := range results {
		out[result.index] = result
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("Extraction complete",
		logger.F("files", len(jobs)),
		logger.F("workers", numWorkers))
	return out, nil
}

// extractWorker processes extraction jobs until the channel drains or the
// context is cancelled
func (e *Engine) extractWorker(ctx context.Context, root string, ext *extract.Extractor, jobs <-chan extractJob, results chan<- extractResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec, err := e.extractOne(ctx, root, ext, job)
		results <- extractResult{index: job.index, record: rec, err: err}
	}
}

func (e *Engine) extractOne(ctx context.Context, root string, ext *extract.Extractor, job extractJob) (pattern.Record, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(job.path)))
	if err != nil {
		return pattern.Record{}, fmt.Errorf("reading %s: %w", job.path, err)
	}

	var key cache.Key
	if e.cache != nil {
		key = cache.KeyFor(job.path, content, job.key.String(), job.lang, extract.Version)
		rec, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn("Cache read failed", logger.F("path", job.path), logger.F("error", err))
		} else if ok {
			e.logger.Debug("Cache hit", logger.F("path", job.path), logger.F("role", job.key.String()))
			return rec, nil
		}
	}

	rec, err := ext.Extract(ctx, job.path, content, job.key, job.lang)
	if err != nil {
		return pattern.Record{}, err
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, key, rec); err != nil {
			e.logger.Warn("Cache write failed", logger.F("path", job.path), logger.F("error", err))
		}
	}
	return rec, nil
}
