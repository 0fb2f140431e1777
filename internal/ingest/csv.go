package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/spf13/cast"
)

// ErrNoHeader is returned for a CSV input without a header row.
var ErrNoHeader = errors.New("csv: missing header row")

// ParseCSV reads delimited text whose first row names the fields. Cells are
// typed: integers and decimals become numbers, empty cells nil, anything
// else stays a string. Numbers with a leading zero ("007") and words that
// happen to parse as floats ("NaN", "Inf") stay strings.
func ParseCSV(r io.Reader, comma rune) (pivot.DataSource, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var ds pivot.DataSource
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec := make(pivot.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = parseCell(row[i])
			} else {
				rec[name] = nil
			}
		}
		ds = append(ds, rec)
	}
	return ds, nil
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if !strings.ContainsRune("+-.0123456789", rune(s[0])) {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := cast.ToFloat64E(s); err == nil {
		return f
	}
	return s
}
