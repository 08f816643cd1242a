// Package config loads the reconciliation settings from a CUE file and
// applies environment overrides. The config file is optional; every field
// has a default so a bare repository can run with flags alone.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Defaults for a repository that carries no config file.
const (
	DefaultUnitsRoot       = "units"
	DefaultManifestName    = "unit.json"
	DefaultCounterPath     = "version-counter.txt"
	DefaultRegistryTool    = "vsce"
	DefaultRegistryTimeout = 30000
)

// Settings is the full configuration surface of one reconciliation run.
type Settings struct {
	ConfigVersion string

	UnitsRoot    string
	ManifestName string
	CounterPath  string

	PublisherID       string
	RegistryTool      string
	RegistryTimeoutMs int

	ForceUpdate bool
	FilterLua   string
	ReportPath  string
}

// Defaults returns the settings used when no config file is given.
func Defaults() Settings {
	return Settings{
		UnitsRoot:         DefaultUnitsRoot,
		ManifestName:      DefaultManifestName,
		CounterPath:       DefaultCounterPath,
		RegistryTool:      DefaultRegistryTool,
		RegistryTimeoutMs: DefaultRegistryTimeout,
	}
}

// Load parses a CUE config file into Settings.
func Load(path string) (Settings, error) {
	if filepath.Ext(path) != ".cue" {
		return Settings{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %v", err)
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Settings{}, err
	}

	s := Defaults()
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&s.ConfigVersion); err != nil {
		return Settings{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	for _, step := range []func() error{
		func() error { return decodeString(v, "units.root", &s.UnitsRoot) },
		func() error { return decodeString(v, "units.manifest", &s.ManifestName) },
		func() error { return decodeString(v, "counter.path", &s.CounterPath) },
		func() error { return decodeString(v, "publisher.id", &s.PublisherID) },
		func() error { return decodeString(v, "registry.tool", &s.RegistryTool) },
		func() error { return decodeInt(v, "registry.timeoutMs", &s.RegistryTimeoutMs) },
		func() error { return decodeBool(v, "forceUpdate", &s.ForceUpdate) },
		func() error { return decodeString(v, "filter.luaInline", &s.FilterLua) },
		func() error { return decodeString(v, "report.path", &s.ReportPath) },
	} {
		if err := step(); err != nil {
			return Settings{}, err
		}
	}

	if s.RegistryTimeoutMs <= 0 {
		s.RegistryTimeoutMs = DefaultRegistryTimeout
	}
	return s, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// The decode helpers leave dst at its default when the field is absent, and
// reject a field that is present with the wrong type. A typo'd value must
// surface, not silently fall back to the default.

func decodeString(v cue.Value, path string, dst *string) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", path)
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", path, err)
	}
	return nil
}

func decodeInt(v cue.Value, path string, dst *int) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	if f.Kind() != cue.IntKind {
		return fmt.Errorf("invalid type for field: %s (expected int)", path)
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", path, err)
	}
	return nil
}

func decodeBool(v cue.Value, path string, dst *bool) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	if f.Kind() != cue.BoolKind {
		return fmt.Errorf("invalid type for field: %s (expected bool)", path)
	}
	if err := f.Decode(dst); err != nil {
		return fmt.Errorf("invalid value for %s: %v", path, err)
	}
	return nil
}
