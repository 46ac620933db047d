// Package pipeline runs a complete load: read and join the inputs, clean
// the merged table and replace the destination table with it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vvka-141/msgload/internal/checksum"
	"github.com/vvka-141/msgload/internal/clean"
	"github.com/vvka-141/msgload/internal/dataset"
	"github.com/vvka-141/msgload/internal/files/filesystem"
	"github.com/vvka-141/msgload/internal/metrics"
	"github.com/vvka-141/msgload/internal/store"
	"github.com/vvka-141/msgload/pkg/msgload"
)

// OpenFunc opens a destination store. store.OpenDestination in production.
type OpenFunc func(ctx context.Context, dest store.Destination, opts store.Options) (store.Writer, error)

// Result describes a successful run.
type Result struct {
	Load        dataset.Stats
	Clean       clean.Stats
	RowsWritten int
	Table       string
	Destination store.Destination
	// Digest is a SHA-256 over the written rows. Two runs that wrote the
	// same table report the same digest.
	Digest   string
	Duration time.Duration
}

// Runner is not safe for concurrent use.
type Runner struct {
	fs     filesystem.FileSystemProvider
	logger msgload.Logger
	open   OpenFunc
	calc   checksum.Calculator
	now    func() time.Time
}

// NewRunner panics on nil dependencies.
func NewRunner(fsys filesystem.FileSystemProvider, logger msgload.Logger, open OpenFunc) *Runner {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if open == nil {
		panic("open cannot be nil")
	}
	return &Runner{fs: fsys, logger: logger, open: open, calc: checksum.New(), now: time.Now}
}

// Run executes load, clean and write in order. Nothing is written unless
// loading and cleaning succeed.
func (r *Runner) Run(ctx context.Context, cfg msgload.RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dest, err := store.ParseDestination(cfg.Destination)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := r.now()
	res := &Result{Table: cfg.TableName, Destination: dest}
	err = r.run(ctx, cfg, res)
	res.Duration = r.now().Sub(start)

	if cfg.MetricsFile != "" {
		r.writeMetrics(cfg.MetricsFile, res, err == nil)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) run(ctx context.Context, cfg msgload.RunConfig, res *Result) (err error) {
	r.logger.Info("Loading data...\n    MESSAGES: %s\n    CATEGORIES: %s", cfg.MessagesPath, cfg.CategoriesPath)
	loader := dataset.NewLoader(r.fs, r.logger)
	table, loadStats, err := loader.Load(ctx, dataset.Options{
		MessagesPath:     cfg.MessagesPath,
		CategoriesPath:   cfg.CategoriesPath,
		IDColumn:         cfg.IDColumn,
		CategoriesColumn: cfg.CategoriesColumn,
		Delimiter:        cfg.Delimiter,
		SchemaPolicy:     cfg.SchemaPolicy,
	})
	res.Load = loadStats
	if err != nil {
		return err
	}
	r.logger.Verbose("Joined %s rows from %s messages and %s categories rows",
		humanize.Comma(int64(loadStats.JoinedRows)),
		humanize.Comma(int64(loadStats.MessageRows)),
		humanize.Comma(int64(loadStats.CategoryRows)))
	if loadStats.SkippedRows > 0 {
		r.logger.Info("Skipped %s categories rows that did not match the category schema",
			humanize.Comma(int64(loadStats.SkippedRows)))
	}

	r.logger.Info("Cleaning data...")
	cleaned, cleanStats := clean.New(r.calc).Clean(table)
	res.Clean = cleanStats
	r.logger.Verbose("Removed %s duplicate rows, corrected %s related values",
		humanize.Comma(int64(cleanStats.DuplicatesRemoved)),
		humanize.Comma(int64(cleanStats.RelatedCorrected)))

	r.logger.Info("Saving data...\n    DATABASE: %s", res.Destination)
	w, err := r.open(ctx, res.Destination, store.Options{
		Logger:               r.logger,
		ConnectRetryAttempts: msgload.DefaultConnectRetryAttempts,
		RetryInitialDelay:    msgload.DefaultRetryInitialDelay,
		RetryMaxDelay:        msgload.DefaultRetryMaxDelay,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close destination: %w", msgload.ErrWriteFailed, cerr)
		}
	}()

	if err := w.WriteTable(ctx, cfg.TableName, cleaned); err != nil {
		return err
	}
	res.RowsWritten = cleaned.Len()
	res.Digest = r.calc.TableDigest(cleaned)
	r.logger.Verbose("Table digest %s", res.Digest)
	return nil
}

// writeMetrics never fails the run. A metrics file that cannot be written
// is reported and otherwise ignored.
func (r *Runner) writeMetrics(path string, res *Result, success bool) {
	rec := metrics.NewRecorder()
	rec.Observe(metrics.Run{
		MessageRows:       res.Load.MessageRows,
		CategoryRows:      res.Load.CategoryRows,
		JoinedRows:        res.Load.JoinedRows,
		SkippedRows:       res.Load.SkippedRows,
		DuplicatesRemoved: res.Clean.DuplicatesRemoved,
		RelatedCorrected:  res.Clean.RelatedCorrected,
		RowsWritten:       res.RowsWritten,
		Duration:          res.Duration,
		Success:           success,
		Finished:          r.now(),
	})
	if err := rec.WriteFile(path); err != nil {
		r.logger.Error("%v", err)
		return
	}
	r.logger.Verbose("Wrote metrics to %s", path)
}
