package owid

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	colCountry = "country"
	colISOCode = "iso_code"
	colYear    = "year"
	colCO2     = "co2"

	owidPrefix = "OWID_"
)

// parseCSV reads the long-format OWID CSV (one row per country and year) and
// groups it into one raw record per country. Every column is loaded as a
// string so the domain layer decides what counts as a valid number.
func parseCSV(r io.Reader) (domain.RawDataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse owid csv: %w", df.Err)
	}

	names := df.Names()
	for _, col := range []string{colCountry, colISOCode, colYear, colCO2} {
		if !slices.Contains(names, col) {
			return nil, fmt.Errorf("parse owid csv: missing column %q", col)
		}
	}

	countries := df.Col(colCountry).Records()
	isoCodes := df.Col(colISOCode).Records()
	years := df.Col(colYear).Records()
	values := df.Col(colCO2).Records()

	// The first row of a country decides its code; skipped names stay skipped.
	codeByName := make(map[string]string)
	raw := make(domain.RawDataset)

	for i, name := range countries {
		code, seen := codeByName[name]
		if !seen {
			code = regionCode(isoCodes[i])
			codeByName[name] = code
		}
		if code == "" {
			continue
		}

		rec, ok := raw[code]
		if !ok {
			rec = domain.RawRegionRecord{DisplayName: name, Values: make(map[string]any)}
		}
		if v := strings.TrimSpace(values[i]); !isMissing(v) {
			rec.Values[strings.TrimSpace(years[i])] = cellValue(v)
		}
		raw[code] = rec
	}
	return raw, nil
}

// regionCode maps an OWID iso_code to a region code. Empty and missing codes
// mark regional rollups and return "".
func regionCode(iso string) string {
	iso = strings.TrimSpace(iso)
	switch {
	case isMissing(iso):
		return ""
	case strings.HasPrefix(iso, owidPrefix):
		return iso
	case len(iso) == 3:
		return owidPrefix + iso
	default:
		return iso
	}
}

// cellValue returns the float for a numeric cell and the text otherwise, which
// the normalizer then counts as a malformed point.
func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

func isMissing(s string) bool {
	switch s {
	case "", "NaN", "NA", "<nil>":
		return true
	}
	return false
}
