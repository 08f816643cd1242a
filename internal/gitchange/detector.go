// Package gitchange answers one question per unit and run: did any commit
// after the recorded baseline touch the unit's tracked paths? Failures are
// fail-open (assume changed) so a version bump is never silently skipped
// because of tooling trouble.
package gitchange

import (
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Result is the per-unit change record for one run.
type Result struct {
	Changed bool
	// Head is the current head revision, recorded as the new baseline when
	// the unit is updated. Empty when the repository could not be opened.
	Head string
}

// Detector queries the enclosing git repository.
type Detector struct {
	root string

	repo *git.Repository
	head plumbing.Hash
	open bool
}

func NewDetector(root string) *Detector { return &Detector{root: root} }

func (d *Detector) ensureOpen() error {
	if d.open {
		return nil
	}
	repo, err := git.PlainOpenWithOptions(d.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return err
	}
	ref, err := repo.Head()
	if err != nil {
		return err
	}
	d.repo = repo
	d.head = ref.Hash()
	d.open = true
	return nil
}

// Head returns the current head revision, or "" when the repository is
// unreachable.
func (d *Detector) Head() string {
	if err := d.ensureOpen(); err != nil {
		return ""
	}
	return d.head.String()
}

// HasChanges reports whether any commit strictly after since touched one of
// the tracked paths. An empty since means the baseline was never recorded:
// assume dirty. Any query failure also resolves as changed, with a warning.
func (d *Detector) HasChanges(paths []string, since string) Result {
	if err := d.ensureOpen(); err != nil {
		log.Warn("git repository unavailable, assuming changed", "root", d.root, "err", err)
		return Result{Changed: true}
	}
	head := d.head.String()
	if since == "" {
		return Result{Changed: true, Head: head}
	}
	sinceHash := plumbing.NewHash(since)
	sinceCommit, err := d.repo.CommitObject(sinceHash)
	if err != nil {
		// Rewritten history or a shallow clone that lost the baseline.
		log.Warn("baseline revision not found, assuming changed", "since", since, "err", err)
		return Result{Changed: true, Head: head}
	}
	if sinceHash == d.head {
		return Result{Changed: false, Head: head}
	}

	iter, err := d.repo.Log(&git.LogOptions{From: d.head, PathFilter: pathFilter(paths)})
	if err != nil {
		log.Warn("git log failed, assuming changed", "err", err)
		return Result{Changed: true, Head: head}
	}
	defer iter.Close()

	changed := false
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == sinceHash {
			return storer.ErrStop
		}
		// The baseline may never have touched the tracked paths itself, so
		// the walk cannot rely on meeting it. The newest path-touching commit
		// decides: at or before the baseline means nothing landed since.
		older, aerr := c.IsAncestor(sinceCommit)
		if aerr != nil {
			log.Warn("ancestry check failed, assuming changed", "commit", c.Hash.String(), "err", aerr)
			changed = true
			return storer.ErrStop
		}
		if older {
			return storer.ErrStop
		}
		changed = true
		return storer.ErrStop
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		log.Warn("git history walk failed, assuming changed", "err", err)
		return Result{Changed: true, Head: head}
	}
	return Result{Changed: changed, Head: head}
}

// pathFilter matches a commit path when it equals a tracked path or sits
// underneath a tracked directory.
func pathFilter(tracked []string) func(string) bool {
	prefixes := make([]string, 0, len(tracked))
	exact := make(map[string]bool, len(tracked))
	for _, t := range tracked {
		t = strings.TrimSuffix(t, "/")
		if t == "" {
			continue
		}
		exact[t] = true
		prefixes = append(prefixes, t+"/")
	}
	return func(p string) bool {
		if exact[p] {
			return true
		}
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}
