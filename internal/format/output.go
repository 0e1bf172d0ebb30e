// Package format writes CLI results as strict JSON or EDN.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Envelope wraps every CLI result. Hints carry out-of-band facts about how the
// result was produced (for example that it came from local data).
type Envelope struct {
	Data  any            `json:"data"`
	Hints map[string]any `json:"_hints,omitempty"`
}

// Formats lists the accepted --format values.
var Formats = []string{"json", "edn"}

// Normalize lower-cases f and maps "" to json. Unknown formats are an error.
func Normalize(f string) (string, error) {
	f = strings.ToLower(strings.TrimSpace(f))
	switch f {
	case "", "json":
		return "json", nil
	case "edn":
		return "edn", nil
	default:
		return "", fmt.Errorf("unknown format %q (want one of %s)", f, strings.Join(Formats, ", "))
	}
}

// Write writes v in the requested format.
func Write(w io.Writer, v any, format string, pretty bool) error {
	f, err := Normalize(format)
	if err != nil {
		return err
	}
	if f == "edn" {
		return WriteEDN(w, v, pretty)
	}
	return WriteJSON(w, v, pretty)
}

// WriteJSON writes one JSON document followed by a newline. Output stays strict JSON;
// anything extra belongs in the envelope's hints.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
