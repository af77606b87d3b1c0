package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/store"
	"github.com/hqnguyen/hotelharvest/internal/validate"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate all persisted entities and mirror the invalid ones",
		Long: `Walks every partition in the result store, applies the entity
validation rules to each persisted document, and copies the invalid ones
into the error directory for review. The result store itself is never
modified; re-running the command is always safe.`,
		RunE: runValidateCommand,
	}
}

func runValidateCommand(*cobra.Command, []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	results, err := store.NewFSResultStore(cfg.Paths.ResultsDir, logger)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}
	mirror := store.NewTimestampedErrorMirror(cfg.Paths.ErrorDir, time.Now(), logger)
	rules := validate.Config{TotalTolerancePct: cfg.Validation.TotalTolerancePct}

	partitions, err := results.ListPartitions()
	if err != nil {
		return err
	}

	var checked, invalid int
	for _, partition := range partitions {
		slugs, err := results.ListSlugs(partition)
		if err != nil {
			return err
		}
		for slug := range slugs {
			checked++
			entity, err := results.Load(partition, slug)
			if err != nil {
				logger.Warn("unreadable entity",
					zap.String("partition", partition),
					zap.String("slug", slug),
					zap.Error(err),
				)
				invalid++
				continue
			}
			verdict := validate.Validate(slug, entity, rules)
			if verdict.Valid {
				continue
			}
			invalid++
			logger.Info("invalid entity",
				zap.String("partition", partition),
				zap.String("slug", slug),
				zap.String("reason", verdict.Reason),
			)
			if err := mirror.Mirror(partition, results.EntityPath(partition, slug)); err != nil {
				return fmt.Errorf("mirror invalid entity %s/%s: %w", partition, slug, err)
			}
			if err := mirror.LogInvalid(partition, slug, verdict.Reason); err != nil {
				return err
			}
		}
	}

	if invalid > 0 {
		if err := mirror.WriteSummary(checked, invalid); err != nil {
			return err
		}
	}

	logger.Info("validation pass complete",
		zap.Int("checked", checked),
		zap.Int("invalid", invalid),
		zap.String("error_dir", mirror.Root()),
	)
	return nil
}
