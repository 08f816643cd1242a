// Package counter persists the single global monotonically-increasing
// integer shared by all units. The file is a plain-text integer with a
// trailing newline at a fixed repository-root path.
package counter

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Default is the counter value assumed when no file exists yet or the stored
// value is unusable. Version arithmetic must never see a value below it.
const Default = 1

// Store reads and writes the counter file.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

// Read returns the stored counter. A missing file is a normal first run and
// returns Default silently; a non-positive or non-numeric value is corrupt
// and falls back to Default with a warning.
func (s *Store) Read() int {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("counter file unreadable, using default", "path", s.path, "err", err)
		}
		return Default
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || n <= 0 {
		log.Warn("counter file corrupt, using default", "path", s.path, "value", strings.TrimSpace(string(b)))
		return Default
	}
	return n
}

// Write persists the counter with a trailing newline.
func (s *Store) Write(n int) error {
	return os.WriteFile(s.path, []byte(strconv.Itoa(n)+"\n"), 0o644)
}
