package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

func testEntity(name string) *harvest.Entity {
	score := 8.5
	return &harvest.Entity{
		Name:   name,
		Rating: "8,5",
		EvaluationCategories: map[string]*float64{
			"cleanliness": &score,
		},
		Reviews: []harvest.Review{{Reviewer: "An", Positive: "Sạch sẽ"}},
	}
}

func TestFSResultStore_SaveIsIdempotentLastWriteWins(t *testing.T) {
	t.Parallel()
	s, err := NewFSResultStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	url := "https://www.booking.com/hotel/vn/sea-breeze.html"
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "hanoi", url, testEntity("first")))
	require.NoError(t, s.Save(ctx, "hanoi", url, testEntity("second")))

	slugs, err := s.ListSlugs("hanoi")
	require.NoError(t, err)
	require.Len(t, slugs, 1)
	require.Contains(t, slugs, "sea_breeze")

	got, err := s.Load("hanoi", "sea_breeze")
	require.NoError(t, err)
	require.Equal(t, "second", got.Name)
}

func TestFSResultStore_ListSlugsMissingPartitionIsEmpty(t *testing.T) {
	t.Parallel()
	s, err := NewFSResultStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	slugs, err := s.ListSlugs("nowhere")
	require.NoError(t, err)
	require.Empty(t, slugs)
}

func TestFSResultStore_ListPartitions(t *testing.T) {
	t.Parallel()
	s, err := NewFSResultStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "hue", "https://example.com/a.html", testEntity("a")))
	require.NoError(t, s.Save(ctx, "danang", "https://example.com/b.html", testEntity("b")))

	partitions, err := s.ListPartitions()
	require.NoError(t, err)
	require.Equal(t, []string{"danang", "hue"}, partitions)
}

func TestFSResultStore_SaveRespectsCancellation(t *testing.T) {
	t.Parallel()
	s, err := NewFSResultStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Save(ctx, "hanoi", "https://example.com/x.html", testEntity("x")))
}

func TestFSLedger_ReadAllUnionsAndDeduplicates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	l := NewFSLedger(root, zap.NewNop())

	urlA := "https://example.com/hotel/vn/a.html"
	urlB := "https://example.com/hotel/vn/b.html"
	urlC := "https://example.com/hotel/vn/c.html"

	require.NoError(t, l.Append("hanoi", urlA))
	require.NoError(t, l.Append("hanoi", urlA))
	require.NoError(t, l.Append("hanoi", urlB))
	require.NoError(t, l.Append("danang", urlB))
	require.NoError(t, l.Append("danang", urlC))

	got, err := l.ReadAll()
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{
		urlA: {},
		urlB: {},
		urlC: {},
	}, got)
}

func TestFSLedger_MissingRootDegradesToEmpty(t *testing.T) {
	t.Parallel()
	l := NewFSLedger(filepath.Join(t.TempDir(), "never-created"), zap.NewNop())

	got, err := l.ReadAll()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFSLedger_IgnoresNonURLLines(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dir := filepath.Join(root, "hanoi")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "link.txt"),
		[]byte("# comment\n\nhttps://example.com/hotel/vn/a.html\n"),
		0o600,
	))

	got, err := NewFSLedger(root, zap.NewNop()).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestErrorMirror_CopiesEntityFile(t *testing.T) {
	t.Parallel()
	results, err := NewFSResultStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	url := "https://example.com/hotel/vn/bad-data.html"
	require.NoError(t, results.Save(context.Background(), "hue", url, testEntity("bad")))

	mirror := NewErrorMirror(t.TempDir(), zap.NewNop())
	require.NoError(t, mirror.Mirror("hue", results.EntityPath("hue", "bad_data")))

	copied, err := os.ReadFile(filepath.Join(mirror.Root(), "hue", "bad_data.json"))
	require.NoError(t, err)
	original, err := os.ReadFile(results.EntityPath("hue", "bad_data"))
	require.NoError(t, err)
	require.Equal(t, original, copied)
}

func TestErrorMirror_TimestampedRoot(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	at := time.Date(2025, 8, 14, 10, 30, 5, 0, time.UTC)

	mirror := NewTimestampedErrorMirror(base, at, zap.NewNop())
	require.Equal(t, filepath.Join(base, "errors_detected_20250814_103005"), mirror.Root())
}

func TestErrorMirror_InvalidLogAndSummary(t *testing.T) {
	t.Parallel()
	mirror := NewErrorMirror(t.TempDir(), zap.NewNop())

	require.NoError(t, mirror.LogInvalid("hue", "bad_data", "reviews are null or empty"))
	require.NoError(t, mirror.LogInvalid("hue", "worse_data", "name is null or empty"))
	require.NoError(t, mirror.WriteSummary(10, 2))

	log, err := os.ReadFile(filepath.Join(mirror.Root(), "hue", "invalid_log.txt"))
	require.NoError(t, err)
	require.Equal(t, "bad_data: reviews are null or empty\nworse_data: name is null or empty\n", string(log))

	summary, err := os.ReadFile(filepath.Join(mirror.Root(), "summary.txt"))
	require.NoError(t, err)
	require.Equal(t, "checked: 10\ninvalid: 2\n", string(summary))
}
