package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Trend classifies the change of a series over its trailing window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// RawRegionRecord is one region as delivered by the source: a display name and
// a sparse year -> value mapping. Values are kept undecoded (as produced by
// encoding/json) so malformed points can be skipped individually.
type RawRegionRecord struct {
	DisplayName string         `json:"country"`
	Values      map[string]any `json:"co2,omitempty"`
}

// RawDataset maps region codes to their raw records.
type RawDataset map[string]RawRegionRecord

// RawSource produces the raw dataset.
type RawSource interface {
	FetchRaw(ctx context.Context) (RawDataset, error)
}

// RegionTimeSeries is the normalized record for one country. Years and Values
// are parallel slices, Years strictly increasing. The JSON field names match
// the processed cache artifact.
type RegionTimeSeries struct {
	RegionCode  string    `json:"country_code"`
	DisplayName string    `json:"country_name"`
	Years       []int     `json:"years"`
	Values      []float64 `json:"emissions"`
	LatestYear  int       `json:"latest_year"`
	LatestValue float64   `json:"latest_emission"`
	Trend       Trend     `json:"trend"`
	MaxValue    float64   `json:"max_emission"`
	MinValue    float64   `json:"min_emission"`
}

// ValueAt returns the value recorded for year and whether it was present.
func (r RegionTimeSeries) ValueAt(year int) (float64, bool) {
	i := sort.SearchInts(r.Years, year)
	if i < len(r.Years) && r.Years[i] == year && i < len(r.Values) {
		return r.Values[i], true
	}
	return 0, false
}

// ValueOrLatest returns the value for year, or LatestValue when the region has
// no data point for it.
func (r RegionTimeSeries) ValueOrLatest(year int) float64 {
	if v, ok := r.ValueAt(year); ok {
		return v
	}
	return r.LatestValue
}

// FirstYear returns the earliest year of the series, or 0 for an empty one.
func (r RegionTimeSeries) FirstYear() int {
	if len(r.Years) == 0 {
		return 0
	}
	return r.Years[0]
}

// Validate checks the structural invariants of a normalized record.
func (r RegionTimeSeries) Validate() error {
	if r.RegionCode == "" {
		return errors.New("empty region code")
	}
	if len(r.Years) == 0 {
		return fmt.Errorf("%s: no data points", r.RegionCode)
	}
	if len(r.Years) != len(r.Values) {
		return fmt.Errorf("%s: %d years but %d values", r.RegionCode, len(r.Years), len(r.Values))
	}
	for i := 1; i < len(r.Years); i++ {
		if r.Years[i] <= r.Years[i-1] {
			return fmt.Errorf("%s: years not strictly increasing at index %d", r.RegionCode, i)
		}
	}
	last := len(r.Years) - 1
	if r.LatestYear != r.Years[last] || r.LatestValue != r.Values[last] {
		return fmt.Errorf("%s: latest point does not match last entry", r.RegionCode)
	}
	if r.MinValue != slices.Min(r.Values) || r.MaxValue != slices.Max(r.Values) {
		return fmt.Errorf("%s: extrema do not match values", r.RegionCode)
	}
	switch r.Trend {
	case TrendIncreasing, TrendDecreasing, TrendStable:
	default:
		return fmt.Errorf("%s: unknown trend %q", r.RegionCode, r.Trend)
	}
	return nil
}

func (r RegionTimeSeries) clone() RegionTimeSeries {
	r.Years = slices.Clone(r.Years)
	r.Values = slices.Clone(r.Values)
	return r
}
