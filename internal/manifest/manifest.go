package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Metadata keys owned by the reconciler. Everything else under "metadata" is
// free-form and is carried through untouched.
const (
	KeyLastVersionCommit = "lastVersionCommit"
	KeyLastVersionUpdate = "lastVersionUpdate"
)

// FileEntry is one declared output file of a unit.
type FileEntry struct {
	Path string `json:"path"`
}

// Manifest is the JSON descriptor of one deployable unit.
type Manifest struct {
	ID       string         `json:"id"`
	Version  string         `json:"version"`
	Files    []FileEntry    `json:"files"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Path is where the manifest was loaded from, relative to the repo root.
	Path string `json:"-"`

	parsed Version
	// extra holds top-level keys the reconciler does not own (displayName,
	// engines, ...). They are carried through a save untouched.
	extra map[string]any
}

// ParseError marks a malformed manifest. It is fatal: a malformed manifest
// indicates a configuration error that must not be papered over.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("manifest %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and validates a unit manifest. root is the repository root and
// rel the manifest path relative to it.
func Load(root, rel string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &ParseError{Path: rel, Err: err}
	}
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&m); err != nil {
		return nil, &ParseError{Path: rel, Err: err}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &ParseError{Path: rel, Err: err}
	}
	for k, v := range raw {
		switch k {
		case "id", "version", "files", "metadata":
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, &ParseError{Path: rel, Err: err}
		}
		if m.extra == nil {
			m.extra = map[string]any{}
		}
		m.extra[k] = val
	}
	m.Path = rel
	if m.ID == "" {
		return nil, &ParseError{Path: rel, Err: fmt.Errorf("missing required field: id")}
	}
	v, err := ParseVersion(m.Version)
	if err != nil {
		return nil, &ParseError{Path: rel, Err: err}
	}
	m.parsed = v
	return &m, nil
}

// ParsedVersion returns the version tuple parsed at load time.
func (m *Manifest) ParsedVersion() Version { return m.parsed }

// SetVersion updates both the tuple and the serialized version string.
func (m *Manifest) SetVersion(v Version) {
	m.parsed = v
	m.Version = v.String()
}

// LastVersionCommit returns the recorded baseline revision, or "" when none
// was ever recorded (treated as "assume changed" downstream).
func (m *Manifest) LastVersionCommit() string {
	if s, ok := m.Metadata[KeyLastVersionCommit].(string); ok {
		return s
	}
	return ""
}

// RecordUpdate stamps the reconciler-owned metadata keys.
func (m *Manifest) RecordUpdate(commit, timestamp string) {
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	m.Metadata[KeyLastVersionCommit] = commit
	m.Metadata[KeyLastVersionUpdate] = timestamp
}

// Marshal returns the canonical JSON bytes for a manifest: owned keys first
// in fixed order, then the carried-through keys sorted, sorted map keys
// throughout, two-space indent, trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	type field struct {
		key string
		val any
	}
	fields := []field{
		{"id", m.ID},
		{"version", m.Version},
		{"files", m.Files},
	}
	if len(m.Metadata) > 0 {
		fields = append(fields, field{"metadata", m.Metadata})
	}
	extras := make([]string, 0, len(m.extra))
	for k := range m.extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		fields = append(fields, field{k, m.extra[k]})
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, f := range fields {
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		val, err := encodeValue(f.val)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// encodeValue renders one top-level value indented one level deep, without
// HTML escaping.
func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Save writes the manifest back to its load location.
func (m *Manifest) Save(root string) error {
	b, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("manifest %s: %w", m.Path, err)
	}
	abs := filepath.Join(root, filepath.FromSlash(m.Path))
	if err := os.WriteFile(abs, b, 0o644); err != nil {
		return fmt.Errorf("manifest %s: %w", m.Path, err)
	}
	return nil
}
