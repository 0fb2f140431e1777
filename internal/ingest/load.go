// Package ingest loads datasets from JSON and delimited text files.
package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// Options controls Load.
type Options struct {
	Format   Format // FormatAuto picks by file extension
	Selector string // JSONPath selecting records in a JSON document
}

// DetectFormat picks the format from the file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	}
	return FormatJSON
}

// Load reads the dataset at path.
func Load(path string, opts Options) (pivot.DataSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	var ds pivot.DataSource
	switch format {
	case FormatJSON:
		ds, err = ParseJSON(data, opts.Selector)
	case FormatCSV:
		ds, err = ParseCSV(bytes.NewReader(data), ',')
	case FormatTSV:
		ds, err = ParseCSV(bytes.NewReader(data), '\t')
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}
