package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printOutput writes v to w in the requested format.
func printOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return eris.Wrap(enc.Encode(v), "output: encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		return eris.Wrap(enc.Close(), "output: close yaml encoder")
	default:
		return eris.Errorf("output: unknown format %q (want json or yaml)", format)
	}
}
