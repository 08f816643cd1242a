// Package registry queries the external marketplace for a unit's currently
// published version by shelling out to the publisher tooling. Identifiers
// are validated before they reach the argument vector, and everything the
// tool prints is treated as untrusted text.
package registry

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/flarebyte/seshat-tally/internal/manifest"
)

// Outcome classifies a lookup. NotPublished asserts the unit has never been
// released; Unknown means the answer could not be determined and must not be
// treated as NotPublished.
type Outcome int

const (
	Unknown Outcome = iota
	NotPublished
	Published
)

func (o Outcome) String() string {
	switch o {
	case NotPublished:
		return "not-published"
	case Published:
		return "published"
	default:
		return "unknown"
	}
}

// Record is the result of one lookup.
type Record struct {
	Outcome Outcome
	Version manifest.Version
}

// Client is the narrow lookup surface the reconciler depends on. It can be a
// subprocess-backed client or a test double.
type Client interface {
	Lookup(publisherID, unitID string) Record
}

// identPattern is the security boundary: anything outside it never reaches
// the subprocess argument vector.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidIdent reports whether s is safe to interpolate into tool arguments.
func ValidIdent(s string) bool { return s != "" && identPattern.MatchString(s) }

// ToolClient looks up published versions by invoking an external CLI tool
// ("<tool> show <publisher>.<unit> --json") with an argument vector.
type ToolClient struct {
	Tool      string
	TimeoutMs int

	// runTool is swappable in tests.
	runTool func(argv []string, timeoutMs int) toolResult
}

func NewToolClient(tool string, timeoutMs int) *ToolClient {
	return &ToolClient{Tool: tool, TimeoutMs: timeoutMs, runTool: runTool}
}

// notFoundMarkers are the explicit signals that a unit has never been
// published. Anything else that fails maps to Unknown.
var notFoundMarkers = []string{"not found", "doesn't exist", "does not exist", "404"}

func (c *ToolClient) Lookup(publisherID, unitID string) Record {
	if !ValidIdent(publisherID) || !ValidIdent(unitID) {
		log.Warn("registry identifier failed validation, skipping lookup",
			"publisher", publisherID, "unit", unitID)
		return Record{Outcome: Unknown}
	}
	argv := []string{c.Tool, "show", publisherID + "." + unitID, "--json"}
	res := c.run(argv)
	if res.startErr != "" {
		log.Warn("registry tool unavailable", "tool", c.Tool, "err", res.startErr)
		return Record{Outcome: Unknown}
	}
	if res.timedOut {
		log.Warn("registry lookup timed out", "unit", unitID)
		return Record{Outcome: Unknown}
	}
	if res.exitCode != 0 {
		combined := strings.ToLower(res.stdout + "\n" + res.stderr)
		for _, marker := range notFoundMarkers {
			if strings.Contains(combined, marker) {
				return Record{Outcome: NotPublished}
			}
		}
		log.Warn("registry lookup failed", "unit", unitID, "exit", res.exitCode)
		return Record{Outcome: Unknown}
	}
	return parseShowOutput(unitID, res.stdout)
}

func (c *ToolClient) run(argv []string) toolResult {
	if c.runTool != nil {
		return c.runTool(argv, c.TimeoutMs)
	}
	return runTool(argv, c.TimeoutMs)
}

// parseShowOutput extracts the latest published version from the tool's JSON
// output. Error pages sometimes arrive HTML-entity-encoded; decode once
// before giving up. Every parse failure degrades to Unknown.
func parseShowOutput(unitID, out string) Record {
	payload, ok := decodeShowJSON(out)
	if !ok {
		log.Warn("registry output unparsable", "unit", unitID)
		return Record{Outcome: Unknown}
	}
	if len(payload.Versions) == 0 {
		return Record{Outcome: NotPublished}
	}
	v, err := manifest.ParseVersion(payload.Versions[0].Version)
	if err != nil {
		log.Warn("registry reported unparsable version", "unit", unitID, "version", payload.Versions[0].Version)
		return Record{Outcome: Unknown}
	}
	return Record{Outcome: Published, Version: v}
}

type showPayload struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

func decodeShowJSON(out string) (showPayload, bool) {
	var p showPayload
	if err := json.Unmarshal([]byte(out), &p); err == nil {
		return p, true
	}
	decoded := html.UnescapeString(out)
	if err := json.Unmarshal([]byte(decoded), &p); err == nil {
		return p, true
	}
	return showPayload{}, false
}
