package config

import (
	"os"
	"strings"
)

// Environment variables honored by the invoking pipeline.
const (
	EnvPublisherID = "PUBLISHER_ID"
	EnvForceUpdate = "FORCE_UPDATE"
)

// ApplyEnv overlays pipeline environment variables on top of file settings.
// An absent PUBLISHER_ID leaves registry-floor checks disabled unless the
// config file provides one.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvPublisherID); ok && v != "" {
		s.PublisherID = v
	}
	if v, ok := lookup(EnvForceUpdate); ok {
		s.ForceUpdate = truthy(v)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
