package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/flarebyte/seshat-tally/cmd/seshat/root"
	"github.com/flarebyte/seshat-tally/internal/testutil"
)

// buildFixture creates a git repository with two units, committed.
func buildFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	files := map[string]string{
		"units/alpha/unit.json": `{"id":"alpha","version":"1.0","files":[{"path":"units/alpha/dist/main.js"}]}` + "\n",
		"units/alpha/src.js":    "console.log('alpha')\n",
		"units/beta/unit.json":  `{"id":"beta","version":"1.0","files":[{"path":"units/beta/dist/main.js"}]}` + "\n",
		"units/beta/src.js":     "console.log('beta')\n",
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := wt.Commit("initial units", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

func TestReconcileEndToEnd(t *testing.T) {
	dir := buildFixture(t)

	// First run: forced, no counter history.
	if err := root.Execute([]string{"reconcile", "--root", dir, "--force"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	alpha := readFile(t, dir, "units/alpha/unit.json")
	beta := readFile(t, dir, "units/beta/unit.json")
	if !strings.Contains(alpha, `"version": "1.0.1"`) {
		t.Fatalf("alpha not bumped:\n%s", alpha)
	}
	if !strings.Contains(beta, `"version": "1.0.2"`) {
		t.Fatalf("beta not bumped:\n%s", beta)
	}
	if got := readFile(t, dir, "version-counter.txt"); got != "3\n" {
		t.Fatalf("counter after first run: %q", got)
	}
	if !strings.Contains(alpha, `"lastVersionCommit"`) {
		t.Fatalf("baseline not recorded:\n%s", alpha)
	}

	// Snapshot, then run again without force and with no new commits.
	snap := filepath.Join(t.TempDir(), "snap")
	if err := testutil.CopyTree(filepath.Join(dir, "units"), snap); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := root.Execute([]string{"reconcile", "--root", dir, "--force=false"}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, rel := range []string{"alpha/unit.json", "beta/unit.json"} {
		before, err := os.ReadFile(filepath.Join(snap, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		after, err := os.ReadFile(filepath.Join(dir, "units", filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read after: %v", err)
		}
		if !bytes.Equal(before, after) {
			t.Fatalf("second run must not touch %s", rel)
		}
	}
	if got := readFile(t, dir, "version-counter.txt"); got != "3\n" {
		t.Fatalf("counter after idle run: %q", got)
	}
}

func TestReconcileDryRun(t *testing.T) {
	dir := buildFixture(t)
	if err := root.Execute([]string{"reconcile", "--root", dir, "--force", "--dry-run"}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if strings.Contains(readFile(t, dir, "units/alpha/unit.json"), "1.0.1") {
		t.Fatal("dry run must not write manifests")
	}
	if _, err := os.Stat(filepath.Join(dir, "version-counter.txt")); !os.IsNotExist(err) {
		t.Fatal("dry run must not write the counter file")
	}
}

func TestReconcileMalformedManifestFails(t *testing.T) {
	dir := buildFixture(t)
	bad := filepath.Join(dir, "units", "alpha", "unit.json")
	if err := os.WriteFile(bad, []byte(`{"id":"alpha","version":"garbage","files":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := root.Execute([]string{"reconcile", "--root", dir, "--force"}); err == nil {
		t.Fatal("expected a fatal error for a malformed manifest")
	}
}
