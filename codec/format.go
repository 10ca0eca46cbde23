package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects the text adapter of a document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts json, yaml and yml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("codec: unknown format %q", s)
}

// CompressedSuffix marks zstd-compressed documents.
const CompressedSuffix = ".zst"

// DetectFormat guesses the format of a file from its name: a trailing .zst
// means compressed, then .yaml or .yml means YAML and anything else JSON.
func DetectFormat(path string) (f Format, compressed bool) {
	if strings.HasSuffix(path, CompressedSuffix) {
		compressed = true
		path = strings.TrimSuffix(path, CompressedSuffix)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, compressed
	}
	return FormatJSON, compressed
}
