package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"prompt-explorer/internal/database"
	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metadata"
	"prompt-explorer/internal/metrics"
	"prompt-explorer/internal/workers"
)

// progressInterval controls how often the progress callback fires: once
// every this many completions plus once at the end, so the interactive
// side is never flooded.
const progressInterval = 25

// ProgressFunc receives (completed, total) during a scan. It is called
// from the scan goroutine; callers must marshal onto their own loop.
type ProgressFunc func(done, total int)

// Scanner builds the entry collection for a folder. Extraction runs on
// a bounded worker pool; the result preserves sorted file-name order
// regardless of completion order.
type Scanner struct {
	// Cache is the optional persistent prompt cache. Nil disables
	// cache consultation and write-back.
	Cache *database.Database

	// NumWorkers overrides the worker pool size (0 = auto).
	NumWorkers int

	// extract is swappable for tests.
	extract func(path string) string
}

// NewScanner returns a Scanner using the given prompt cache (may be nil).
func NewScanner(cache *database.Database) *Scanner {
	return &Scanner{
		Cache:   cache,
		extract: metadata.Extract,
	}
}

// SetExtractor replaces the prompt extraction function. Tests use it to
// observe or slow down extraction; nil restores the default.
func (s *Scanner) SetExtractor(fn func(path string) string) {
	if fn == nil {
		fn = metadata.Extract
	}
	s.extract = fn
}

// scanJob carries one file to an extraction worker.
type scanJob struct {
	idx  int
	path string
}

// scanResult carries one extracted prompt back to the collector.
type scanResult struct {
	idx    int
	prompt string
	row    *database.PromptRow // non-nil when the cache should be refreshed
}

// Scan enumerates *.png files directly under folder (sorted by name),
// extracts their prompts on a worker pool, and returns the entries in
// name order. Individual extraction failures degrade to empty prompts
// and never fail the scan. The error return covers only enumeration
// problems (unreadable folder).
func (s *Scanner) Scan(ctx context.Context, folder string, progress ProgressFunc) ([]Entry, error) {
	start := time.Now()
	metrics.ScanRunsTotal.Inc()

	paths, err := listPNGs(folder)
	if err != nil {
		return nil, err
	}

	total := len(paths)
	if total == 0 {
		if progress != nil {
			progress(0, 0)
		}
		return []Entry{}, nil
	}

	numWorkers := s.NumWorkers
	if numWorkers <= 0 {
		numWorkers = workers.ForScan()
	}
	if numWorkers > total {
		numWorkers = total
	}
	metrics.ScanWorkers.Set(float64(numWorkers))
	logging.Info("Scanning %s: %d files with %d workers", folder, total, numWorkers)

	jobs := make(chan scanJob, numWorkers)
	results := make(chan scanResult, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := s.extractOne(ctx, job)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs; stop early on cancellation.
	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- scanJob{idx: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results into their sorted positions and report progress.
	prompts := make([]string, total)
	var freshRows []database.PromptRow
	done := 0
	for res := range results {
		prompts[res.idx] = res.prompt
		if res.row != nil {
			freshRows = append(freshRows, *res.row)
		}
		done++
		if progress != nil && (done%progressInterval == 0 || done == total) {
			progress(done, total)
		}
	}

	if err := ctx.Err(); err != nil {
		logging.Debug("Scan of %s canceled after %d/%d files", folder, done, total)
		return nil, err
	}

	entries := make([]Entry, total)
	for i, p := range paths {
		entries[i] = NewEntry(p, prompts[i])
	}

	if s.Cache != nil && len(freshRows) > 0 {
		if err := s.Cache.SaveBatch(ctx, freshRows); err != nil {
			logging.Warn("Failed to save prompt cache batch: %v", err)
		}
	}

	metrics.ScanFilesProcessed.Add(float64(total))
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	logging.Info("Scan complete: %d entries in %v (%d cache refreshes)",
		total, time.Since(start), len(freshRows))
	return entries, nil
}

// extractOne resolves one file's prompt, consulting the persistent
// cache first when available.
func (s *Scanner) extractOne(ctx context.Context, job scanJob) scanResult {
	info, err := os.Stat(job.path)
	if err != nil {
		// File vanished mid-scan; treat as promptless.
		logging.Debug("Stat failed for %s: %v", job.path, err)
		return scanResult{idx: job.idx}
	}

	size := info.Size()
	modTime := info.ModTime().Unix()

	if s.Cache != nil {
		if prompt, ok := s.Cache.Lookup(ctx, job.path, size, modTime); ok {
			metrics.ScanPromptCacheHits.Inc()
			return scanResult{idx: job.idx, prompt: prompt}
		}
	}

	prompt := s.extract(job.path)
	res := scanResult{idx: job.idx, prompt: prompt}
	if s.Cache != nil {
		res.row = &database.PromptRow{
			Path:    job.path,
			Size:    size,
			ModTime: modTime,
			Prompt:  prompt,
		}
	}
	return res
}

// listPNGs returns the sorted paths of *.png files directly under
// folder. Non-recursive; subdirectories and other extensions are
// ignored.
func listPNGs(folder string) ([]string, error) {
	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folder, err)
	}

	var paths []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(de.Name()), ".png") {
			paths = append(paths, filepath.Join(folder, de.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
