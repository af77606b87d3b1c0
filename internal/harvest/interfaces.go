package harvest

import "context"

// Session is one stateful, non-shareable browser session. A worker owns
// exactly one session for its lifetime.
type Session interface {
	// Navigate loads the URL and returns the rendered document. Timeout
	// failures satisfy IsTimeout so the caller can classify them.
	Navigate(ctx context.Context, url string) (string, error)
	// Warmup performs the once-per-session landing visit before real work.
	Warmup(ctx context.Context) error
	Close() error
}

// Extractor turns a rendered page into a structured entity. It is an
// external collaborator; the core only depends on this contract.
type Extractor interface {
	Extract(html string) (*Entity, error)
}

// ResultStore persists one record per successfully processed entity, keyed
// by (partition, slug). Save is idempotent with last-write-wins semantics.
type ResultStore interface {
	Save(ctx context.Context, partition, url string, entity *Entity) error
	ListSlugs(partition string) (map[string]struct{}, error)
	Load(partition, slug string) (*Entity, error)
}

// FailureLedger records URLs that exhausted their retry budget. Appends are
// per-partition and may contain duplicates; ReadAll collapses every ledger
// across the output tree into one deduplicated global set.
type FailureLedger interface {
	Append(partition, url string) error
	ReadAll() (map[string]struct{}, error)
}

// TaskSource hands work items to a worker. Next blocks until an item is
// available, the source is exhausted, or ctx is done; the boolean reports
// whether an item was returned. Completed is called once per successful
// item so dynamic sources can maintain their done count.
type TaskSource interface {
	Next(ctx context.Context) (WorkItem, bool)
	Completed()
}
