package reconcile

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// MarshalReport returns canonical YAML bytes for a run summary: stable key
// order, two-space indent, trailing newline. Pipelines diff these files, so
// the encoding must be rewrite-stable.
func MarshalReport(s *Summary) ([]byte, error) {
	units := make([]any, 0, len(s.Results))
	for _, r := range s.Results {
		u := map[string]any{
			"id":      r.ID,
			"old":     r.Old,
			"new":     r.New,
			"outcome": string(r.Outcome),
		}
		if r.Note != "" {
			u["note"] = r.Note
		}
		units = append(units, u)
	}
	top := &yaml.Node{Kind: yaml.MappingNode}
	top.Content = append(top.Content, scalarNode("total"), scalarFrom(len(s.Results)))
	top.Content = append(top.Content, scalarNode("updated"), scalarFrom(s.Updated))
	top.Content = append(top.Content, scalarNode("skipped"), scalarFrom(s.Skipped))
	top.Content = append(top.Content, scalarNode("warnings"), scalarFrom(s.Warnings))
	if s.DryRun {
		top.Content = append(top.Content, scalarNode("dryRun"), scalarFrom(true))
	}
	top.Content = append(top.Content, scalarNode("units"), canonicalNode(units))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

// WriteReport writes the canonical report to path, creating parent
// directories.
func WriteReport(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := MarshalReport(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarFrom(v any) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func canonicalNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.MappingNode}
	case map[string]any:
		return canonicalMapNode(x)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range x {
			n.Content = append(n.Content, canonicalNode(it))
		}
		return n
	default:
		return scalarFrom(x)
	}
}

func canonicalMapNode(m map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if len(m) == 0 {
		return n
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), canonicalNode(m[k]))
	}
	return n
}
