package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/campaign"
	"github.com/hqnguyen/hotelharvest/internal/reconcile"
	"github.com/hqnguyen/hotelharvest/internal/store"
	"github.com/hqnguyen/hotelharvest/internal/validate"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Diff campaign output against targets and emit the next work list",
		Long: `Compares every partition's target URL set against the persisted and
validated results plus the timeout ledgers, classifies the gaps, and
writes the next campaign's work lists and an xlsx review report into the
report directory.`,
		RunE: runReconcileCommand,
	}
}

func runReconcileCommand(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	partitions, err := campaign.LoadPartitions(cfg.Paths.SourceDir, logger)
	if err != nil {
		return fmt.Errorf("load partitions: %w", err)
	}

	results, err := store.NewFSResultStore(cfg.Paths.ResultsDir, logger)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}
	ledger := store.NewFSLedger(cfg.Paths.LedgerDir, logger)

	rec := reconcile.New(
		results,
		ledger,
		validate.Config{TotalTolerancePct: cfg.Validation.TotalTolerancePct},
		reconcile.Precedence(cfg.Reconcile.Precedence),
		logger,
	)

	report, err := rec.Reconcile(ctx, partitions)
	if err != nil {
		return err
	}

	if err := reconcile.WriteWorkLists(report, cfg.Paths.ReportDir); err != nil {
		return err
	}
	workbook := filepath.Join(cfg.Paths.ReportDir, "crawl_again_report.xlsx")
	if err := reconcile.WriteWorkbook(report, workbook); err != nil {
		return err
	}

	logger.Info("reconciliation artifacts written",
		zap.String("report_dir", cfg.Paths.ReportDir),
		zap.String("workbook", workbook),
		zap.Int("rows", len(report.Rows)),
		zap.Int("next_work", len(report.AllWork())),
	)
	return nil
}
