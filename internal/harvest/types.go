// Package harvest defines core types shared across subsystems.
package harvest

// Partition is a named, disjoint subset of the target URL set. Its target
// list is loaded once per campaign and is read-only thereafter.
type Partition struct {
	Name    string
	Targets []string
}

// WorkItem is one unit of assignment: a single URL within a partition.
// It is consumed exactly once per campaign attempt; retries happen inside
// the worker, never through re-assignment.
type WorkItem struct {
	URL       string
	Partition string
}

// Outcome classifies the terminal state of one work item.
type Outcome string

// Terminal work item outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// WorkerResult is produced per work item and aggregated by the pool.
type WorkerResult struct {
	URL      string
	Outcome  Outcome
	Attempts int
}

// WorkerStats accumulates per-worker counters over one partition run.
type WorkerStats struct {
	Assigned  int
	Succeeded int
	Failed    int
	Retries   int
}

// Add merges another stats value into s.
func (s *WorkerStats) Add(other WorkerStats) {
	s.Assigned += other.Assigned
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Retries += other.Retries
}

// Summary is the partition-level outcome reported at the end of a run.
type Summary struct {
	Partition string `json:"partition"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Retries   int    `json:"retries"`
}

// Review is one guest review attached to an entity.
type Review struct {
	Reviewer     string `json:"reviewer"`
	Country      string `json:"country,omitempty"`
	Room         string `json:"room,omitempty"`
	Nights       string `json:"nights,omitempty"`
	StayDate     string `json:"stay_date,omitempty"`
	TravelerType string `json:"traveler_type,omitempty"`
	Date         string `json:"date,omitempty"`
	Title        string `json:"title,omitempty"`
	Score        string `json:"score,omitempty"`
	Positive     string `json:"positive,omitempty"`
	Negative     string `json:"negative,omitempty"`
}

// Entity is the structured record extracted from one hotel page. The exact
// field set is owned by the extractor; the core only relies on Name,
// EvaluationCategories, TotalRating and Reviews for validation.
type Entity struct {
	Name                 string              `json:"name"`
	Address              string              `json:"address,omitempty"`
	Description          string              `json:"description,omitempty"`
	Rating               string              `json:"rating,omitempty"`
	TotalRating          string              `json:"total_rating,omitempty"`
	EvaluationCategories map[string]*float64 `json:"evaluation_categories"`
	Reviews              []Review            `json:"reviews"`
}

// Verdict is the validator's judgment over one persisted entity. It is
// derived purely from entity content and never mutates it.
type Verdict struct {
	Slug   string
	Valid  bool
	Reason string
}
