// Package reconcile computes, between campaign runs, which target URLs
// still need harvesting. For every partition it diffs the target set
// against three observed outcome sets — validated entities, invalidated
// entities, and permanently timed-out URLs — under an explicit precedence
// policy, and emits the next campaign's work list plus a reviewable report.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
	"github.com/hqnguyen/hotelharvest/internal/validate"
)

// Classification labels one non-succeeded target URL.
type Classification string

// Report row classifications.
const (
	ClassError            Classification = "Error"
	ClassMissing          Classification = "Missing"
	ClassTimeoutPermanent Classification = "Timeout Permanent"
)

// Precedence is the named, testable policy resolving URLs that appear in
// more than one outcome set. Two historical policies exist; the choice is
// configuration, not code.
type Precedence string

// Shipped precedence policies.
const (
	// PrecedenceInvalidatedFirst re-crawls a known-bad entity even when
	// the URL also sits in the timeout ledger. Default.
	PrecedenceInvalidatedFirst Precedence = "invalidated-first"
	// PrecedenceTimeoutFirst lets a ledger entry veto any re-crawl.
	PrecedenceTimeoutFirst Precedence = "timeout-first"
)

// Valid reports whether p names a shipped policy.
func (p Precedence) Valid() bool {
	return p == PrecedenceInvalidatedFirst || p == PrecedenceTimeoutFirst
}

// Row is one classified target URL.
type Row struct {
	Partition string
	URL       string
	Class     Classification
	Note      string
}

// Report is the outcome of one reconciliation pass. NextWork holds the
// union of Error and Missing URLs per partition; timed-out URLs stay
// excluded until an operator clears the ledger.
type Report struct {
	PassID   string
	Rows     []Row
	NextWork map[string][]string
}

// AllWork flattens NextWork into one deduplicated, sorted list.
func (r *Report) AllWork() []string {
	seen := make(map[string]struct{})
	var all []string
	for _, urls := range r.NextWork {
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			all = append(all, u)
		}
	}
	sort.Strings(all)
	return all
}

// Counts tallies rows per classification.
func (r *Report) Counts() map[Classification]int {
	counts := make(map[Classification]int)
	for _, row := range r.Rows {
		counts[row.Class]++
	}
	return counts
}

// Reconciler classifies every target URL of every partition.
type Reconciler struct {
	results    harvest.ResultStore
	ledger     harvest.FailureLedger
	validation validate.Config
	precedence Precedence
	logger     *zap.Logger
}

// New constructs a Reconciler.
func New(
	results harvest.ResultStore,
	ledger harvest.FailureLedger,
	validation validate.Config,
	precedence Precedence,
	logger *zap.Logger,
) *Reconciler {
	if !precedence.Valid() {
		precedence = PrecedenceInvalidatedFirst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		results:    results,
		ledger:     ledger,
		validation: validation,
		precedence: precedence,
		logger:     logger,
	}
}

// Reconcile produces the report for the given partitions. Missing inputs
// (absent partition directories, absent ledgers) degrade to empty sets with
// a diagnostic; the pass itself never aborts on them. Valid entities emit
// no row: the report covers exactly the URLs that are not settled.
func (r *Reconciler) Reconcile(ctx context.Context, partitions []harvest.Partition) (*Report, error) {
	timeouts, err := r.ledger.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read failure ledgers: %w", err)
	}

	report := &Report{
		PassID:   uuid.NewString(),
		NextWork: make(map[string][]string),
	}

	for _, part := range partitions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reconciliation canceled: %w", err)
		}
		if err := r.reconcilePartition(part, timeouts, report); err != nil {
			return nil, err
		}
	}

	sortRows(report.Rows)
	for name := range report.NextWork {
		sort.Strings(report.NextWork[name])
	}

	counts := report.Counts()
	r.logger.Info("reconciliation pass complete",
		zap.String("pass_id", report.PassID),
		zap.String("precedence", string(r.precedence)),
		zap.Int("error", counts[ClassError]),
		zap.Int("missing", counts[ClassMissing]),
		zap.Int("timeout_permanent", counts[ClassTimeoutPermanent]),
	)
	return report, nil
}

func (r *Reconciler) reconcilePartition(part harvest.Partition, timeouts map[string]struct{}, report *Report) error {
	valid, invalid, err := r.verdictSets(part.Name)
	if err != nil {
		return err
	}

	seenSlugs := make(map[string]string, len(part.Targets))
	for _, url := range part.Targets {
		slug := harvest.Slug(url)

		if prior, dup := seenSlugs[slug]; dup && prior != url {
			report.Rows = append(report.Rows, Row{
				Partition: part.Name,
				URL:       url,
				Class:     ClassError,
				Note:      fmt.Sprintf("slug %q collides with %s, needs operator review", slug, prior),
			})
			report.NextWork[part.Name] = append(report.NextWork[part.Name], url)
			continue
		}
		seenSlugs[slug] = url

		row, work := r.classify(part.Name, url, slug, valid, invalid, timeouts)
		if row != nil {
			report.Rows = append(report.Rows, *row)
		}
		if work {
			report.NextWork[part.Name] = append(report.NextWork[part.Name], url)
		}
	}
	return nil
}

// verdictSets re-derives the valid and invalidated slug sets by validating
// the persisted entities of one partition. Verdicts are pure, so the
// recomputation is idempotent across passes.
func (r *Reconciler) verdictSets(partition string) (map[string]struct{}, map[string]string, error) {
	slugs, err := r.results.ListSlugs(partition)
	if err != nil {
		return nil, nil, fmt.Errorf("list results for %s: %w", partition, err)
	}

	valid := make(map[string]struct{})
	invalid := make(map[string]string)
	for slug := range slugs {
		entity, err := r.results.Load(partition, slug)
		if err != nil {
			r.logger.Warn("unreadable entity treated as invalid",
				zap.String("partition", partition),
				zap.String("slug", slug),
				zap.Error(err),
			)
			invalid[slug] = "entity unreadable"
			continue
		}
		verdict := validate.Validate(slug, entity, r.validation)
		if verdict.Valid {
			valid[slug] = struct{}{}
		} else {
			invalid[slug] = verdict.Reason
		}
	}
	return valid, invalid, nil
}

func (r *Reconciler) classify(
	partition, url, slug string,
	valid map[string]struct{},
	invalid map[string]string,
	timeouts map[string]struct{},
) (*Row, bool) {
	_, isValid := valid[slug]
	reason, isInvalid := invalid[slug]
	_, isTimeout := timeouts[url]

	if r.precedence == PrecedenceTimeoutFirst && isTimeout {
		return &Row{
			Partition: partition,
			URL:       url,
			Class:     ClassTimeoutPermanent,
			Note:      "in timeout ledger, excluded until the ledger is cleared",
		}, false
	}

	switch {
	case isInvalid:
		return &Row{
			Partition: partition,
			URL:       url,
			Class:     ClassError,
			Note:      fmt.Sprintf("invalid entity persisted (%s), re-crawl", reason),
		}, true
	case isValid:
		return nil, false
	case isTimeout:
		return &Row{
			Partition: partition,
			URL:       url,
			Class:     ClassTimeoutPermanent,
			Note:      "missing and in timeout ledger, excluded",
		}, false
	default:
		return &Row{
			Partition: partition,
			URL:       url,
			Class:     ClassMissing,
			Note:      "no data persisted yet, re-crawl",
		}, true
	}
}

var classRank = map[Classification]int{
	ClassError:            0,
	ClassMissing:          1,
	ClassTimeoutPermanent: 2,
}

// sortRows imposes the total order (partition, classification, URL) purely
// for reproducibility.
func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		if classRank[a.Class] != classRank[b.Class] {
			return classRank[a.Class] < classRank[b.Class]
		}
		return a.URL < b.URL
	})
}
