package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// archiveRow is one line of `js5 info`.
type archiveRow struct {
	Archive uint8   `json:"archive" yaml:"archive"`
	Groups  int     `json:"groups" yaml:"groups"`
	Version *uint32 `json:"version,omitempty" yaml:"version,omitempty"`
	Format  string  `json:"format" yaml:"format"`
}

// groupRow is one line of `js5 ls`.
type groupRow struct {
	Group    uint32 `json:"group" yaml:"group"`
	Version  uint32 `json:"version" yaml:"version"`
	CRC      string `json:"crc" yaml:"crc"`
	Files    int    `json:"files" yaml:"files"`
	NameHash *int32 `json:"name_hash,omitempty" yaml:"name_hash,omitempty"`
}

// writeStructured renders v as JSON or YAML. It reports false for the table
// format, which each command renders itself.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "", "table":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, fmt.Errorf("unknown output format %q (table, json, yaml)", format)
	}
}
