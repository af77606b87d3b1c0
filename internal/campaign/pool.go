package campaign

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
	"github.com/hqnguyen/hotelharvest/internal/metrics"
	"github.com/hqnguyen/hotelharvest/internal/worker"
)

// Strategy selects how a partition's URLs are assigned to workers.
type Strategy string

// Assignment strategies.
const (
	StrategyStatic Strategy = "static"
	StrategyQueue  Strategy = "queue"
)

// PoolState is the lifecycle of one partition run.
type PoolState int32

// Pool lifecycle states.
const (
	StateIdle PoolState = iota
	StateSpawning
	StateRunning
	StateCancelling
	StateDraining
	StateDone
)

func (s PoolState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SessionFactory creates the browser session one worker will own for its
// whole lifetime.
type SessionFactory func(ctx context.Context, workerID int) (harvest.Session, error)

// PoolConfig sizes the pool and its assignment strategy.
type PoolConfig struct {
	Workers     int
	Strategy    Strategy
	IdleTimeout time.Duration
	Poll        time.Duration
	Worker      worker.Config
}

// Pool owns the lifecycle of exactly W workers per partition: it spawns
// them, forwards the shared cancellation signal through ctx, contains
// worker crashes, and aggregates outcomes into a partition summary.
type Pool struct {
	cfg      PoolConfig
	sessions SessionFactory
	extract  harvest.Extractor
	results  harvest.ResultStore
	ledger   harvest.FailureLedger
	logger   *zap.Logger
	state    atomic.Int32
}

// NewPool constructs a Pool.
func NewPool(
	cfg PoolConfig,
	sessions SessionFactory,
	extract harvest.Extractor,
	results harvest.ResultStore,
	ledger harvest.FailureLedger,
	logger *zap.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyStatic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:      cfg,
		sessions: sessions,
		extract:  extract,
		results:  results,
		ledger:   ledger,
		logger:   logger,
	}
}

// State reports the current lifecycle state.
func (p *Pool) State() PoolState {
	return PoolState(p.state.Load())
}

func (p *Pool) setState(s PoolState) {
	p.state.Store(int32(s))
}

// RunPartition drives one partition to completion and returns its summary.
// It blocks until every worker has exited, whether naturally, by idle
// timeout, or by cancellation. A crashed worker is logged and contained:
// siblings keep running and the summary reflects only completed work.
func (p *Pool) RunPartition(ctx context.Context, part harvest.Partition) harvest.Summary {
	log := p.logger.With(zap.String("partition", part.Name))
	p.setState(StateSpawning)

	items := make([]harvest.WorkItem, 0, len(part.Targets))
	for _, url := range part.Targets {
		items = append(items, harvest.WorkItem{URL: url, Partition: part.Name})
	}

	sources := p.buildSources(items)
	slugs := harvest.NewSlugIndex()

	var (
		mu    sync.Mutex
		total harvest.WorkerStats
	)

	watcherDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.setState(StateCancelling)
			log.Info("cancellation signal observed, draining workers")
			p.setState(StateDraining)
		case <-watcherDone:
		}
	}()

	var g errgroup.Group
	p.setState(StateRunning)
	for i, src := range sources {
		id, src := i, src
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					// Contain the crash: the in-flight URL is lost for
					// this attempt and surfaces as Missing at
					// reconciliation.
					log.Error("worker crashed",
						zap.Int("worker", id),
						zap.Any("panic", r),
					)
				}
			}()
			stats := p.runWorker(ctx, id, src, slugs, log)
			mu.Lock()
			total.Add(stats)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	close(watcherDone)
	p.setState(StateDone)

	summary := harvest.Summary{
		Partition: part.Name,
		Total:     len(items),
		Succeeded: total.Succeeded,
		Failed:    total.Failed,
		Retries:   total.Retries,
	}
	log.Info("partition finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("retries", summary.Retries),
	)
	return summary
}

// buildSources returns one task source per worker slot. Static chunking
// yields a private source per worker and skips workers with no assignment;
// the queue strategy shares a single source among all workers.
func (p *Pool) buildSources(items []harvest.WorkItem) []harvest.TaskSource {
	if p.cfg.Strategy == StrategyQueue {
		shared := NewTaskQueue(items, p.cfg.IdleTimeout, p.cfg.Poll)
		sources := make([]harvest.TaskSource, p.cfg.Workers)
		for i := range sources {
			sources[i] = shared
		}
		return sources
	}

	chunks := Chunk(items, p.cfg.Workers)
	sources := make([]harvest.TaskSource, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		sources = append(sources, newStaticSource(chunk))
	}
	return sources
}

func (p *Pool) runWorker(ctx context.Context, id int, src harvest.TaskSource, slugs *harvest.SlugIndex, log *zap.Logger) harvest.WorkerStats {
	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	sess, err := p.sessions(ctx, id)
	if err != nil {
		log.Error("session start failed", zap.Int("worker", id), zap.Error(err))
		return harvest.WorkerStats{}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("session close failed", zap.Int("worker", id), zap.Error(cerr))
		}
	}()

	if err := sess.Warmup(ctx); err != nil {
		if ctx.Err() != nil {
			return harvest.WorkerStats{}
		}
		log.Warn("session warmup failed, continuing", zap.Int("worker", id), zap.Error(err))
	}

	w := worker.New(id, sess, p.extract, p.results, p.ledger, slugs, p.cfg.Worker, log)
	return w.Run(ctx, src)
}
