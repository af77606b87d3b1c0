package campaign

import (
	"context"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// Chunk splits items into at most workers contiguous chunks of size
// ceil(N/W). It is deterministic and needs no runtime coordination; the
// trade-off is uneven load when task durations vary. The chunk sizes always
// sum to N and their union equals the input.
func Chunk(items []harvest.WorkItem, workers int) [][]harvest.WorkItem {
	if workers <= 0 || len(items) == 0 {
		return nil
	}
	size := (len(items) + workers - 1) / workers

	chunks := make([][]harvest.WorkItem, 0, workers)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// staticSource hands a fixed assignment to one worker, in order.
type staticSource struct {
	items []harvest.WorkItem
	next  int
}

func newStaticSource(items []harvest.WorkItem) *staticSource {
	return &staticSource{items: items}
}

// Next is not safe for concurrent use; a static source belongs to exactly
// one worker.
func (s *staticSource) Next(ctx context.Context) (harvest.WorkItem, bool) {
	if ctx.Err() != nil || s.next >= len(s.items) {
		return harvest.WorkItem{}, false
	}
	item := s.items[s.next]
	s.next++
	return item, true
}

func (s *staticSource) Completed() {}
