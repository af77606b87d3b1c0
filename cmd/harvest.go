package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/api"
	"github.com/hqnguyen/hotelharvest/internal/campaign"
	"github.com/hqnguyen/hotelharvest/internal/extractor"
	"github.com/hqnguyen/hotelharvest/internal/metrics"
	"github.com/hqnguyen/hotelharvest/internal/session"
	"github.com/hqnguyen/hotelharvest/internal/store"
	"github.com/hqnguyen/hotelharvest/internal/worker"
)

func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Run one crawling campaign over the configured partitions",
		Long: `Loads the partitioned target URL sets from the source directory and
drives one campaign over them: a pool of workers, each owning its own
browser session, harvests every target and persists the results. The
campaign stops cleanly on SIGINT/SIGTERM or when the optional runtime
cap elapses; already-persisted results are kept.`,
		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if limit := cfg.MaxRuntime(); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
		logger.Info("campaign runtime cap armed", zap.Duration("max_runtime", limit))
	}

	metrics.Init()

	partitions, err := campaign.LoadPartitions(cfg.Paths.SourceDir, logger)
	if err != nil {
		return fmt.Errorf("load partitions: %w", err)
	}

	results, err := store.NewFSResultStore(cfg.Paths.ResultsDir, logger)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}
	ledger := store.NewFSLedger(cfg.Paths.LedgerDir, logger)

	sessions := session.Factory(session.Config{
		Headless:      cfg.Session.Headless,
		UserAgent:     cfg.Session.UserAgent,
		NavTimeout:    cfg.NavTimeout(),
		ReadySelector: cfg.Session.ReadySelector,
		WarmupURL:     cfg.Session.WarmupURL,
	}, logger)

	pool := campaign.NewPool(campaign.PoolConfig{
		Workers:     cfg.Campaign.Workers,
		Strategy:    campaign.Strategy(cfg.Campaign.Strategy),
		IdleTimeout: cfg.IdleTimeout(),
		Poll:        cfg.PollInterval(),
		Worker: worker.Config{
			MaxRetries:   cfg.Retry.MaxRetries,
			BackoffMin:   time.Duration(cfg.Retry.BackoffMinSec) * time.Second,
			BackoffMax:   time.Duration(cfg.Retry.BackoffMaxSec) * time.Second,
			TaskDelayMin: time.Duration(cfg.Campaign.TaskDelayMinSec) * time.Second,
			TaskDelayMax: time.Duration(cfg.Campaign.TaskDelayMaxSec) * time.Second,
		},
	}, sessions, extractor.NewBooking(logger), results, ledger, logger)

	runner := campaign.NewRunner(pool, logger)

	if cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(runner, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
		logger.Info("status server listening", zap.Int("port", cfg.Server.Port))
	}

	summaries, aggregate := runner.Run(ctx, partitions)
	for _, s := range summaries {
		logger.Info("partition finished",
			zap.String("partition", s.Partition),
			zap.Int("total", s.Total),
			zap.Int("succeeded", s.Succeeded),
			zap.Int("failed", s.Failed),
			zap.Int("retries", s.Retries),
		)
	}
	logger.Info("campaign finished",
		zap.String("campaign_id", runner.CampaignID()),
		zap.Int("total", aggregate.Total),
		zap.Int("succeeded", aggregate.Succeeded),
		zap.Int("failed", aggregate.Failed),
	)

	if ctx.Err() != nil {
		logger.Warn("campaign stopped before completion", zap.Error(ctx.Err()))
	}
	return nil
}
