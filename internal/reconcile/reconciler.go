package reconcile

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flarebyte/seshat-tally/internal/gitchange"
	"github.com/flarebyte/seshat-tally/internal/manifest"
	"github.com/flarebyte/seshat-tally/internal/registry"
)

// ChangeDetector is the version-control query surface the reconciler needs.
type ChangeDetector interface {
	Head() string
	HasChanges(paths []string, since string) gitchange.Result
}

// Options configures one reconciliation run.
type Options struct {
	Root         string
	UnitsRoot    string
	ManifestName string
	PublisherID  string
	ForceUpdate  bool
	DryRun       bool
	FilterLua    string

	// Now is swappable in tests. Nil means time.Now.
	Now func() time.Time
	// Progress receives per-unit progress lines. Nil disables them.
	Progress io.Writer
}

// Deps are the collaborators of one run.
type Deps struct {
	Detector ChangeDetector
	Registry registry.Client
	// PersistCounter is called with the advanced counter after each
	// successful manifest write, so counter and manifest state move
	// together. Nil (dry-run) skips persistence.
	PersistCounter func(n int) error
}

// Run processes every unit manifest in deterministic order, threading the
// explicit counter state through: counterIn is the value read at run start,
// the returned counter is the value after the last successful update. The
// run either completes all units or aborts on the first fatal error.
func Run(opts Options, deps Deps, counterIn int) (Summary, int, error) {
	summary := Summary{DryRun: opts.DryRun}
	counter := counterIn

	paths, err := discoverManifests(opts.Root, opts.UnitsRoot, opts.ManifestName)
	if err != nil {
		return summary, counter, err
	}

	filter, err := buildUnitFilter(opts.FilterLua)
	if err != nil {
		return summary, counter, fmt.Errorf("unit filter: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	seen := map[string]string{}
	for _, rel := range paths {
		m, err := manifest.Load(opts.Root, rel)
		if err != nil {
			return summary, counter, err
		}
		if prev, ok := seen[m.ID]; ok {
			return summary, counter, fmt.Errorf("duplicate unit id %q in %s and %s", m.ID, prev, rel)
		}
		seen[m.ID] = rel
		res, err := reconcileUnit(m, rel, &summary, &counter, opts, deps, filter, now)
		if err != nil {
			return summary, counter, err
		}
		summary.add(res)
		progress(opts.Progress, res)
	}
	return summary, counter, nil
}

func reconcileUnit(m *manifest.Manifest, rel string, summary *Summary, counter *int,
	opts Options, deps Deps, filter unitFilter, now func() time.Time) (UnitResult, error) {

	old := m.ParsedVersion()
	res := UnitResult{ID: m.ID, Path: rel, Old: old.String(), New: old.String()}

	if filter != nil {
		keep, err := filter(m.ID, m.Version, filepath.ToSlash(filepath.Dir(rel)))
		if err != nil {
			return res, fmt.Errorf("unit filter for %s: %w", m.ID, err)
		}
		if !keep {
			res.Outcome = OutcomeSkipped
			res.Note = "filtered"
			return res, nil
		}
	}

	tracked, err := m.TrackedPaths(opts.UnitsRoot)
	if err != nil {
		return res, err
	}

	var change gitchange.Result
	if opts.ForceUpdate {
		change = gitchange.Result{Changed: true, Head: deps.Detector.Head()}
	} else {
		change = deps.Detector.HasChanges(tracked, m.LastVersionCommit())
	}
	if !change.Changed {
		res.Outcome = OutcomeSkipped
		res.Note = "no changes"
		return res, nil
	}

	reg := registry.Record{}
	if opts.PublisherID != "" {
		reg = deps.Registry.Lookup(opts.PublisherID, m.ID)
		if reg.Outcome == registry.Unknown {
			log.Warn("marketplace floor unavailable, relying on local floor only", "unit", m.ID)
			summary.Warnings++
		}
	}

	patch, raised := CandidatePatch(old, *counter, reg)
	if raised {
		log.Warn("patch raised to exceed registry version",
			"unit", m.ID, "registry", reg.Version.String(), "patch", patch)
		res.Note = "patch raised to exceed registry version"
		summary.Warnings++
	}

	next := manifest.Version{Major: old.Major, Minor: old.Minor, Patch: patch}
	m.SetVersion(next)
	m.RecordUpdate(change.Head, now().UTC().Format(time.RFC3339))

	if !opts.DryRun {
		if err := m.Save(opts.Root); err != nil {
			// Fail stop: the counter must not drift ahead of manifests
			// that never reached disk.
			return res, fmt.Errorf("persisting %s failed, run aborted before counter advance: %w", m.ID, err)
		}
	}
	*counter = patch + 1
	if !opts.DryRun && deps.PersistCounter != nil {
		if err := deps.PersistCounter(*counter); err != nil {
			return res, fmt.Errorf("persisting counter after %s failed, run aborted: %w", m.ID, err)
		}
	}

	res.New = next.String()
	res.Outcome = OutcomeUpdated
	return res, nil
}

// discoverManifests returns repo-relative manifest paths in lexicographic
// order. Order matters: each updated unit consumes and advances the shared
// counter.
func discoverManifests(root, unitsRoot, manifestName string) ([]string, error) {
	pattern := filepath.Join(root, filepath.FromSlash(unitsRoot), "*", manifestName)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("manifest discovery: %w", err)
	}
	rels := make([]string, 0, len(matches))
	for _, abs := range matches {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, fmt.Errorf("manifest discovery: %w", err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels, nil
}

func progress(w io.Writer, r UnitResult) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "progress unit=%s outcome=%s\n", r.ID, r.Outcome)
}
