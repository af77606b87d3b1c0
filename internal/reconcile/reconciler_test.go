package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
	"github.com/hqnguyen/hotelharvest/internal/store"
	"github.com/hqnguyen/hotelharvest/internal/validate"
)

func score(v float64) *float64 { return &v }

func validEntity(name string) *harvest.Entity {
	return &harvest.Entity{
		Name: name,
		EvaluationCategories: map[string]*float64{
			"service_staff":   score(8.1),
			"amenities":       score(7.9),
			"cleanliness":     score(8.4),
			"comfort":         score(8.0),
			"value_for_money": score(7.5),
			"location":        score(9.1),
		},
		Reviews: []harvest.Review{{Reviewer: "An", Score: "8.0"}},
	}
}

func invalidEntity() *harvest.Entity {
	e := validEntity("")
	return e
}

type fixture struct {
	results *store.FSResultStore
	ledger  *store.FSLedger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	results, err := store.NewFSResultStore(filepath.Join(dir, "results"), zap.NewNop())
	require.NoError(t, err)
	return fixture{
		results: results,
		ledger:  store.NewFSLedger(filepath.Join(dir, "ledger"), zap.NewNop()),
	}
}

func (f fixture) save(t *testing.T, partition, url string, e *harvest.Entity) {
	t.Helper()
	require.NoError(t, f.results.Save(context.Background(), partition, url, e))
}

func (f fixture) reconciler(p Precedence) *Reconciler {
	return New(f.results, f.ledger, validate.Config{}, p, zap.NewNop())
}

func TestReconcileInvalidatedAndMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	targets := []string{
		"https://example.com/hotel/alpha-bay",
		"https://example.com/hotel/broken-pier",
		"https://example.com/hotel/castle-view",
	}
	f.save(t, "hanoi", targets[0], validEntity("Alpha Bay"))
	f.save(t, "hanoi", targets[1], invalidEntity())

	report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(
		context.Background(),
		[]harvest.Partition{{Name: "hanoi", Targets: targets}},
	)
	require.NoError(t, err)

	require.Equal(t, []string{targets[1], targets[2]}, report.NextWork["hanoi"])
	require.Len(t, report.Rows, 2)
	require.Equal(t, ClassError, report.Rows[0].Class)
	require.Equal(t, targets[1], report.Rows[0].URL)
	require.Contains(t, report.Rows[0].Note, "name is null or empty")
	require.Equal(t, ClassMissing, report.Rows[1].Class)
	require.Equal(t, targets[2], report.Rows[1].URL)
}

func TestReconcileLedgeredMissingExcluded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	url := "https://example.com/hotel/delta-creek"
	require.NoError(t, f.ledger.Append("hanoi", url))

	report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(
		context.Background(),
		[]harvest.Partition{{Name: "hanoi", Targets: []string{url}}},
	)
	require.NoError(t, err)

	require.Empty(t, report.NextWork["hanoi"])
	require.Len(t, report.Rows, 1)
	require.Equal(t, ClassTimeoutPermanent, report.Rows[0].Class)
}

func TestReconcilePrecedenceOnConflict(t *testing.T) {
	t.Parallel()

	// One URL both invalidated and ledgered: the policy decides.
	setup := func(t *testing.T) (fixture, string) {
		f := newFixture(t)
		url := "https://example.com/hotel/echo-sands"
		f.save(t, "hue", url, invalidEntity())
		require.NoError(t, f.ledger.Append("hue", url))
		return f, url
	}
	parts := func(url string) []harvest.Partition {
		return []harvest.Partition{{Name: "hue", Targets: []string{url}}}
	}

	t.Run("invalidated-first re-crawls", func(t *testing.T) {
		t.Parallel()
		f, url := setup(t)
		report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(context.Background(), parts(url))
		require.NoError(t, err)
		require.Equal(t, []string{url}, report.NextWork["hue"])
		require.Equal(t, ClassError, report.Rows[0].Class)
	})

	t.Run("timeout-first excludes", func(t *testing.T) {
		t.Parallel()
		f, url := setup(t)
		report, err := f.reconciler(PrecedenceTimeoutFirst).Reconcile(context.Background(), parts(url))
		require.NoError(t, err)
		require.Empty(t, report.NextWork["hue"])
		require.Equal(t, ClassTimeoutPermanent, report.Rows[0].Class)
	})
}

func TestReconcileValidEntityEmitsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	url := "https://example.com/hotel/foxtrot-inn"
	f.save(t, "hanoi", url, validEntity("Foxtrot Inn"))

	report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(
		context.Background(),
		[]harvest.Partition{{Name: "hanoi", Targets: []string{url}}},
	)
	require.NoError(t, err)
	require.Empty(t, report.Rows)
	require.Empty(t, report.NextWork)
}

func TestReconcileIdempotentAcrossPasses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	targets := []string{
		"https://example.com/hotel/golf-harbor",
		"https://example.com/hotel/hidden-lake",
	}
	f.save(t, "hanoi", targets[0], invalidEntity())
	parts := []harvest.Partition{{Name: "hanoi", Targets: targets}}

	first, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(context.Background(), parts)
	require.NoError(t, err)
	second, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(context.Background(), parts)
	require.NoError(t, err)

	require.Equal(t, first.Rows, second.Rows)
	require.Equal(t, first.NextWork, second.NextWork)
}

func TestReconcileSlugCollisionFlagged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	targets := []string{
		"https://example.com/a/india-palace",
		"https://example.com/b/india-palace",
	}

	report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(
		context.Background(),
		[]harvest.Partition{{Name: "hanoi", Targets: targets}},
	)
	require.NoError(t, err)

	var collisions int
	for _, row := range report.Rows {
		if row.Class == ClassError {
			collisions++
			require.Contains(t, row.Note, "collides")
		}
	}
	require.Equal(t, 1, collisions)
}

func TestReconcileRowOrderDeterministic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.save(t, "hanoi", "https://example.com/hotel/zulu-bay", invalidEntity())
	require.NoError(t, f.ledger.Append("hanoi", "https://example.com/hotel/kilo-inn"))
	parts := []harvest.Partition{
		{Name: "hue", Targets: []string{"https://example.com/hotel/lima-lodge"}},
		{Name: "hanoi", Targets: []string{
			"https://example.com/hotel/zulu-bay",
			"https://example.com/hotel/kilo-inn",
			"https://example.com/hotel/mike-resort",
		}},
	}

	report, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(context.Background(), parts)
	require.NoError(t, err)

	require.Len(t, report.Rows, 4)
	// Partition first, then Error < Missing < Timeout Permanent, then URL.
	require.Equal(t, "hanoi", report.Rows[0].Partition)
	require.Equal(t, ClassError, report.Rows[0].Class)
	require.Equal(t, ClassMissing, report.Rows[1].Class)
	require.Equal(t, ClassTimeoutPermanent, report.Rows[2].Class)
	require.Equal(t, "hue", report.Rows[3].Partition)
}

func TestReconcileCanceled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.reconciler(PrecedenceInvalidatedFirst).Reconcile(ctx,
		[]harvest.Partition{{Name: "hanoi", Targets: []string{"https://example.com/h"}}})
	require.Error(t, err)
}

func TestWriteWorkLists(t *testing.T) {
	t.Parallel()

	report := &Report{
		NextWork: map[string][]string{
			"hanoi": {"https://example.com/a", "https://example.com/b"},
			"hue":   {"https://example.com/c"},
			"empty": {},
		},
	}
	dir := t.TempDir()
	require.NoError(t, WriteWorkLists(report, dir))

	hanoi, err := os.ReadFile(filepath.Join(dir, "hanoi", "hanoi_links.txt"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a\nhttps://example.com/b\n", string(hanoi))

	all, err := os.ReadFile(filepath.Join(dir, allWorkFile))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a\nhttps://example.com/b\nhttps://example.com/c\n", string(all))

	require.NoDirExists(t, filepath.Join(dir, "empty"))
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	report := &Report{
		Rows: []Row{
			{Partition: "hanoi", URL: "https://example.com/a", Class: ClassError, Note: "invalid"},
			{Partition: "hue", URL: "https://example.com/b", Class: ClassMissing, Note: "no data"},
		},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteWorkbook(report, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Partition", "URL", "Classification", "Note"}, rows[0])
	require.Equal(t, []string{"hanoi", "https://example.com/a", "Error", "invalid"}, rows[1])
}
