package pipeline

import (
	"time"

	"github.com/backmassage/gamepress/internal/asset"
)

// Outcome is the terminal state of one processed asset.
type Outcome int

const (
	OutcomeReplaced  Outcome = iota // Candidate was smaller; it now lives at the destination.
	OutcomeUnchanged                // Original copied through (candidate too big, or nothing to do).
	OutcomeSkipped                  // Not processed at all (exists, dry-run).
	OutcomeFailed                   // Error; original copied through where possible.
)

// String returns the lowercase label used in per-asset report lines.
func (o Outcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// result is one worker's report for one asset, sent to the aggregator.
type result struct {
	index    int // Discovery-order index; the aggregator reports in this order.
	asset    asset.Asset
	outcome  Outcome
	existing bool // Skipped because the destination already exists (vs. dry run).
	outBytes int64
	elapsed  time.Duration
	err      error
}

// RunStats tracks aggregate counters and byte totals across a batch run.
// Owned by the aggregator goroutine during the run; read-only afterwards.
type RunStats struct {
	Total            int
	Done             int
	Replaced         int
	Unchanged        int
	Skipped          int
	Failed           int
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

// record folds one result into the counters. Skipped assets contribute no
// byte totals so the savings figure reflects work actually performed.
func (s *RunStats) record(r result) {
	s.Done++
	switch r.outcome {
	case OutcomeReplaced:
		s.Replaced++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
		return
	case OutcomeFailed:
		s.Failed++
	}
	s.TotalInputBytes += r.asset.Size
	s.TotalOutputBytes += r.outBytes
}
