package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures a batch run.
type BatchOptions struct {
	// OnProgress is called after each email finishes, from the worker that ran it.
	OnProgress func(done, total int, result *ProcessingResult, err error)
	Limit      int // Maximum number of emails; zero processes all
	Workers    int // Concurrent pipelines; defaults to 1
}

// BatchSummary contains statistics about a batch run.
type BatchSummary struct {
	RunID      string
	Errors     []string
	Attempted  int // Emails a pipeline was started for
	Processed  int // Pipelines that ran to completion
	Successful int // Completed with no stage errors
	Failed     int // Pipelines that could not run or finish
	Duration   time.Duration
}

type itemOutcome struct {
	result *ProcessingResult
	err    error
	ran    bool
}

// ProcessAll runs the pipeline for every unprocessed email, oldest first.
// Per-email failures are counted in the summary and never stop the batch; an
// error is returned only when the pending emails could not be listed or ctx
// was canceled, in which case the summary covers the emails already attempted.
func (p *Processor) ProcessAll(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	start := time.Now()
	summary := &BatchSummary{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", summary.RunID)

	emails, err := p.storage.GetUnprocessedEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unprocessed emails: %w", err)
	}
	if opts.Limit > 0 && len(emails) > opts.Limit {
		emails = emails[:opts.Limit]
	}

	workers := max(opts.Workers, 1)
	total := len(emails)
	logger.Info("Starting batch processing", "emails", total, "workers", workers)

	outcomes := make([]itemOutcome, total)
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for i := range emails {
		if ctx.Err() != nil {
			break
		}
		emailID := emails[i].ID
		g.Go(func() error {
			result, err := p.ProcessEmail(ctx, emailID)
			outcomes[i] = itemOutcome{result: result, err: err, ran: true}

			mu.Lock()
			done++
			current := done
			mu.Unlock()

			if opts.OnProgress != nil {
				opts.OnProgress(current, total, result, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, outcome := range outcomes {
		if !outcome.ran {
			continue
		}
		summary.Attempted++
		if outcome.err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to process %s: %v", emails[i].ID, outcome.err))
			continue
		}
		summary.Processed++
		if len(outcome.result.Errors) == 0 {
			summary.Successful++
		}
		summary.Errors = append(summary.Errors, outcome.result.Errors...)
	}

	summary.Duration = time.Since(start)
	BatchDuration.Observe(summary.Duration.Seconds())

	logger.Info("Batch processing complete",
		slog.Int("attempted", summary.Attempted),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Int("errors", len(summary.Errors)),
		slog.Duration("duration", summary.Duration))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}
	return summary, nil
}
