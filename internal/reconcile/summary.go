package reconcile

import (
	"fmt"
	"io"
)

// Outcome is the terminal state of one unit within a run. A unit never
// leaves its terminal state; there is no per-unit retry.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// UnitResult is one line of the run summary.
type UnitResult struct {
	ID      string
	Path    string
	Old     string
	New     string
	Outcome Outcome
	Note    string
}

// Summary aggregates all terminal outcomes of one run. It is the only
// externally consumed output besides the mutated manifests and counter file.
type Summary struct {
	Results  []UnitResult
	Updated  int
	Skipped  int
	Warnings int
	DryRun   bool
}

func (s *Summary) add(r UnitResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Render writes the human-readable summary: one line per unit, then the
// aggregate counts as the last line.
func (s *Summary) Render(w io.Writer) {
	for _, r := range s.Results {
		line := fmt.Sprintf("unit=%s outcome=%s old=%s new=%s", r.ID, r.Outcome, r.Old, r.New)
		if r.Note != "" {
			line += " note=" + quoteIfSpaced(r.Note)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	suffix := ""
	if s.DryRun {
		suffix = " (dry-run)"
	}
	_, _ = fmt.Fprintf(w, "total=%d updated=%d skipped=%d warnings=%d%s\n",
		len(s.Results), s.Updated, s.Skipped, s.Warnings, suffix)
}

func quoteIfSpaced(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}
