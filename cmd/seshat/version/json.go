package version

import (
	"encoding/json"
	"io"
)

// encodeJSON writes the --json payload the way manifests are written:
// two-space indent, no HTML escaping, one trailing newline.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
