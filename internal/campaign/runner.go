package campaign

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// Status is the point-in-time snapshot served by the status endpoint.
type Status struct {
	CampaignID string            `json:"campaign_id"`
	State      string            `json:"state"`
	Partition  string            `json:"partition,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Summaries  []harvest.Summary `json:"summaries"`
}

// Runner executes one campaign: every partition in order, each through the
// pool. Partitions run sequentially; parallelism lives inside the pool,
// where each worker owns a browser session.
type Runner struct {
	pool   *Pool
	logger *zap.Logger

	mu        sync.Mutex
	id        string
	startedAt time.Time
	partition string
	summaries []harvest.Summary
}

// NewRunner constructs a Runner around a configured pool.
func NewRunner(pool *Pool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		pool:   pool,
		logger: logger,
		id:     uuid.NewString(),
	}
}

// CampaignID returns the identifier assigned to this run.
func (r *Runner) CampaignID() string { return r.id }

// Run drives every partition and returns the per-partition summaries along
// with the aggregate. Cancellation between partitions stops cleanly; a
// partially run campaign leaves all persisted state consistent and
// resumable through reconciliation.
func (r *Runner) Run(ctx context.Context, partitions []harvest.Partition) ([]harvest.Summary, harvest.Summary) {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.summaries = nil
	r.mu.Unlock()

	aggregate := harvest.Summary{Partition: "all"}
	for _, part := range partitions {
		if ctx.Err() != nil {
			r.logger.Info("campaign stopped before partition", zap.String("partition", part.Name))
			break
		}

		r.mu.Lock()
		r.partition = part.Name
		r.mu.Unlock()

		r.logger.Info("partition starting",
			zap.String("campaign_id", r.id),
			zap.String("partition", part.Name),
			zap.Int("targets", len(part.Targets)),
		)
		summary := r.pool.RunPartition(ctx, part)

		r.mu.Lock()
		r.summaries = append(r.summaries, summary)
		r.mu.Unlock()

		aggregate.Total += summary.Total
		aggregate.Succeeded += summary.Succeeded
		aggregate.Failed += summary.Failed
		aggregate.Retries += summary.Retries
	}

	r.mu.Lock()
	r.partition = ""
	r.mu.Unlock()

	r.logger.Info("campaign finished",
		zap.String("campaign_id", r.id),
		zap.Int("total", aggregate.Total),
		zap.Int("succeeded", aggregate.Succeeded),
		zap.Int("failed", aggregate.Failed),
	)
	return r.snapshotSummaries(), aggregate
}

// Snapshot returns the current campaign status for the API surface.
func (r *Runner) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		CampaignID: r.id,
		State:      r.pool.State().String(),
		Partition:  r.partition,
		StartedAt:  r.startedAt,
		Summaries:  append([]harvest.Summary(nil), r.summaries...),
	}
}

func (r *Runner) snapshotSummaries() []harvest.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]harvest.Summary(nil), r.summaries...)
}
