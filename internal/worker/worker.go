// Package worker implements the per-URL harvest loop: navigate, extract,
// persist, with a bounded retry state machine for timeout failures.
package worker

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
	"github.com/hqnguyen/hotelharvest/internal/metrics"
)

// Config controls retry and pacing behavior. MaxRetries bounds extra
// attempts after the first (total attempts <= MaxRetries+1); both backoff
// and task delay are randomized ranges, not fixed constants.
type Config struct {
	MaxRetries   int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	TaskDelayMin time.Duration
	TaskDelayMax time.Duration
}

// Worker owns exactly one browser session and consumes assigned URLs
// sequentially. It never re-queues work: retries happen in place.
type Worker struct {
	id      int
	session harvest.Session
	extract harvest.Extractor
	results harvest.ResultStore
	ledger  harvest.FailureLedger
	slugs   *harvest.SlugIndex
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker bound to one session.
func New(
	id int,
	session harvest.Session,
	extract harvest.Extractor,
	results harvest.ResultStore,
	ledger harvest.FailureLedger,
	slugs *harvest.SlugIndex,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 3 * time.Second
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}
	return &Worker{
		id:      id,
		session: session,
		extract: extract,
		results: results,
		ledger:  ledger,
		slugs:   slugs,
		cfg:     cfg,
		logger:  logger.With(zap.Int("worker", id)),
	}
}

// Run consumes items from the source until it is exhausted or ctx is done,
// and returns the worker's counters. The cancellation signal is observed
// before every new item, between attempts, and inside every sleep.
func (w *Worker) Run(ctx context.Context, src harvest.TaskSource) harvest.WorkerStats {
	var stats harvest.WorkerStats
	first := true

	for {
		if ctx.Err() != nil {
			return stats
		}
		item, ok := src.Next(ctx)
		if !ok {
			return stats
		}
		stats.Assigned++

		if !first && !w.sleepRange(ctx, w.cfg.TaskDelayMin, w.cfg.TaskDelayMax) {
			return stats
		}
		first = false

		result := w.process(ctx, item)
		switch result.Outcome {
		case harvest.OutcomeSuccess:
			stats.Succeeded++
			stats.Retries += result.Attempts - 1
			src.Completed()
		case harvest.OutcomeFailed:
			stats.Failed++
			if result.Attempts > 0 {
				stats.Retries += result.Attempts - 1
			}
		case harvest.OutcomeSkipped:
			// Cancellation mid-task: the URL stays unattempted and will
			// surface as Missing at reconciliation.
			return stats
		}
	}
}

func (w *Worker) process(ctx context.Context, item harvest.WorkItem) harvest.WorkerResult {
	start := time.Now()
	result := harvest.WorkerResult{URL: item.URL}
	log := w.logger.With(
		zap.String("partition", item.Partition),
		zap.String("url", item.URL),
	)

	if _, err := w.slugs.Claim(item.URL); err != nil {
		log.Error("slug collision, task rejected", zap.Error(err))
		result.Outcome = harvest.OutcomeFailed
		metrics.TaskFinished(item.Partition, "collision", time.Since(start))
		return result
	}

	for {
		if ctx.Err() != nil {
			result.Outcome = harvest.OutcomeSkipped
			return result
		}
		result.Attempts++

		html, err := w.session.Navigate(ctx, item.URL)
		if err == nil {
			result.Outcome = w.persist(ctx, item, html, log)
			metrics.TaskFinished(item.Partition, string(result.Outcome), time.Since(start))
			return result
		}

		if ctx.Err() != nil {
			result.Outcome = harvest.OutcomeSkipped
			return result
		}

		if !harvest.IsTimeout(err) {
			// Non-retryable: no ledger entry. A partial write, if any,
			// is caught later by validation.
			log.Error("navigation failed",
				zap.Int("attempt", result.Attempts),
				zap.Error(err),
			)
			result.Outcome = harvest.OutcomeFailed
			metrics.TaskFinished(item.Partition, "error", time.Since(start))
			return result
		}

		if result.Attempts > w.cfg.MaxRetries {
			log.Error("timeout, retries exhausted",
				zap.Int("attempts", result.Attempts),
			)
			if lerr := w.ledger.Append(item.Partition, item.URL); lerr != nil {
				log.Error("ledger append failed", zap.Error(lerr))
			} else {
				metrics.LedgerAppend(item.Partition)
			}
			result.Outcome = harvest.OutcomeFailed
			metrics.TaskFinished(item.Partition, "timeout", time.Since(start))
			return result
		}

		log.Warn("timeout, will retry",
			zap.Int("attempt", result.Attempts),
			zap.Int("max_retries", w.cfg.MaxRetries),
		)
		metrics.RetryPerformed(item.Partition)
		backoffMin, backoffMax := w.backoffRange(result.Attempts)
		if !w.sleepRange(ctx, backoffMin, backoffMax) {
			result.Outcome = harvest.OutcomeSkipped
			return result
		}
	}
}

func (w *Worker) persist(ctx context.Context, item harvest.WorkItem, html string, log *zap.Logger) harvest.Outcome {
	entity, err := w.extract.Extract(html)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return harvest.OutcomeFailed
	}
	if err := w.results.Save(ctx, item.Partition, item.URL, entity); err != nil {
		log.Error("persist failed", zap.Error(err))
		return harvest.OutcomeFailed
	}
	log.Info("entity saved", zap.String("name", entity.Name))
	return harvest.OutcomeSuccess
}

// backoffRange scales the configured range with the attempt count so later
// retries wait longer.
func (w *Worker) backoffRange(attempt int) (time.Duration, time.Duration) {
	factor := time.Duration(attempt)
	return w.cfg.BackoffMin * factor, w.cfg.BackoffMax * factor
}

// sleepRange sleeps a random duration from [lo, hi], returning false when
// interrupted by cancellation.
func (w *Worker) sleepRange(ctx context.Context, lo, hi time.Duration) bool {
	if hi <= 0 {
		return ctx.Err() == nil
	}
	delay := lo
	if hi > lo {
		delay += rand.N(hi - lo)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
