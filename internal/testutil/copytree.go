// Package testutil holds filesystem helpers shared by end-to-end tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
)

// CopyTree mirrors src into dst, replacing anything already at dst. Git
// bookkeeping directories are skipped, so a snapshot of a fixture repository
// compares working-tree content only.
func CopyTree(src, dst string) error {
	_ = os.RemoveAll(dst)
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(out, b, 0o644)
	})
}
