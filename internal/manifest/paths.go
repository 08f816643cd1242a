package manifest

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// TrackedPaths derives the set of repo-relative source paths whose commits
// count toward this unit. Declared output files nested under the units root
// collapse to the unit directory, so build-output paths map back to the
// source subtree that produces them. The manifest's own path is always
// included so manifest-only edits count too.
func (m *Manifest) TrackedPaths(unitsRoot string) ([]string, error) {
	unitsRoot = path.Clean(strings.TrimSuffix(filepath.ToSlash(unitsRoot), "/"))
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		p = path.Clean(p)
		if p == "" || p == "." || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, f := range m.Files {
		p := path.Clean(filepath.ToSlash(f.Path))
		if rest, ok := strings.CutPrefix(p, unitsRoot+"/"); ok {
			if i := strings.IndexByte(rest, '/'); i > 0 {
				add(unitsRoot + "/" + rest[:i])
				continue
			}
		}
		add(p)
	}
	add(filepath.ToSlash(m.Path))
	if len(out) == 0 {
		return nil, fmt.Errorf("manifest %s: no tracked paths derivable", m.Path)
	}
	sort.Strings(out)
	return out, nil
}
