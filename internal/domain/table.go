package domain

import (
	"sort"
	"time"
)

// Table is the normalized dataset. It is built once and never mutated, so a
// single *Table can be shared by any number of concurrent readers.
type Table struct {
	regions     map[string]RegionTimeSeries
	codes       []string
	byName      map[string]string
	byMapCode   map[string]string
	firstYear   int
	defaultYear int
	maxLatest   float64
	builtAt     time.Time
}

// NewTable copies regions into a Table. Records that fail Validate or whose
// code is an aggregate are left out, so every region in a Table has at least
// one data point.
func NewTable(regions map[string]RegionTimeSeries, builtAt time.Time) *Table {
	t := &Table{
		regions:   make(map[string]RegionTimeSeries, len(regions)),
		byName:    make(map[string]string, len(regions)),
		byMapCode: make(map[string]string, len(regions)),
		builtAt:   builtAt,
	}

	for code, r := range regions {
		if IsAggregate(code) || r.RegionCode != code || r.Validate() != nil {
			continue
		}
		t.regions[code] = r.clone()
		t.codes = append(t.codes, code)
	}
	sort.Strings(t.codes)

	for i, code := range t.codes {
		r := t.regions[code]
		// First code in sort order wins on a name or map-code collision.
		if _, ok := t.byName[r.DisplayName]; !ok {
			t.byName[r.DisplayName] = code
		}
		if _, ok := t.byMapCode[MapCode(code)]; !ok {
			t.byMapCode[MapCode(code)] = code
		}
		if i == 0 || r.FirstYear() < t.firstYear {
			t.firstYear = r.FirstYear()
		}
		if r.LatestYear > t.defaultYear {
			t.defaultYear = r.LatestYear
		}
		if i == 0 || r.LatestValue > t.maxLatest {
			t.maxLatest = r.LatestValue
		}
	}
	return t
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.codes) }

// Codes returns the region codes in ascending order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Region returns the full record for code, unchanged from normalization.
func (t *Table) Region(code string) (RegionTimeSeries, bool) {
	r, ok := t.regions[code]
	if !ok {
		return RegionTimeSeries{}, false
	}
	return r.clone(), true
}

// Regions returns a copy of every record keyed by region code.
func (t *Table) Regions() map[string]RegionTimeSeries {
	out := make(map[string]RegionTimeSeries, len(t.regions))
	for code, r := range t.regions {
		out[code] = r.clone()
	}
	return out
}

// DefaultYear is the latest year any region reports. Zero for an empty table.
func (t *Table) DefaultYear() int { return t.defaultYear }

// YearRange returns the earliest first year and the latest last year.
func (t *Table) YearRange() (first, last int) { return t.firstYear, t.defaultYear }

// MaxLatestValue is the largest LatestValue in the table.
func (t *Table) MaxLatestValue() float64 { return t.maxLatest }

// BuiltAt is when the table was produced.
func (t *Table) BuiltAt() time.Time { return t.builtAt }

// LookupByName resolves a display name, as shown in a hover label, to a region code.
func (t *Table) LookupByName(name string) (string, bool) {
	code, ok := t.byName[name]
	return code, ok
}

// LookupByMapCode resolves a renderer location code (e.g. "USA") to a region code.
func (t *Table) LookupByMapCode(mapCode string) (string, bool) {
	code, ok := t.byMapCode[mapCode]
	return code, ok
}
