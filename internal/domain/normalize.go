package domain

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// trendWindowYears is how far back from the latest year the trend window reaches.
const trendWindowYears = 5

// aggregateCodes are OWID rollups that are not individual countries. They would
// dominate rankings and have no shape on the map.
var aggregateCodes = map[string]struct{}{
	"OWID_WRL": {},
	"OWID_EUR": {},
	"OWID_ASI": {},
	"OWID_AFR": {},
	"OWID_NAM": {},
	"OWID_SAM": {},
	"OWID_OCE": {},
	"OWID_KOS": {},
}

// IsAggregate reports whether code is in the fixed aggregate exclusion set.
func IsAggregate(code string) bool {
	_, ok := aggregateCodes[code]
	return ok
}

// RejectReason explains why a raw region is missing from the normalized table.
type RejectReason string

const (
	RejectAggregate     RejectReason = "aggregate"
	RejectNoMetric      RejectReason = "no_metric"
	RejectNoValidPoints RejectReason = "no_valid_points"
)

// Rejection records one raw region left out of the table.
type Rejection struct {
	RegionCode string       `json:"region_code"`
	Reason     RejectReason `json:"reason"`
}

// Report describes what normalization skipped. Skipping is routine for this
// dataset and never an error.
type Report struct {
	Rejected        []Rejection `json:"rejected"`
	MalformedPoints int         `json:"malformed_points"`
}

// CountByReason tallies rejections per reason.
func (r Report) CountByReason() map[RejectReason]int {
	counts := make(map[RejectReason]int, 3)
	for _, rej := range r.Rejected {
		counts[rej.Reason]++
	}
	return counts
}

// Normalize builds one RegionTimeSeries per country that has at least one valid
// data point. Aggregates and metric-less regions are silently dropped.
func Normalize(raw RawDataset) map[string]RegionTimeSeries {
	regions, _ := NormalizeWithReport(raw)
	return regions
}

// NormalizeWithReport is Normalize plus a report of everything it skipped.
// Regions are visited in code order so the report is deterministic.
func NormalizeWithReport(raw RawDataset) (map[string]RegionTimeSeries, Report) {
	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make(map[string]RegionTimeSeries, len(raw))
	var report Report
	for _, code := range codes {
		if IsAggregate(code) {
			report.Rejected = append(report.Rejected, Rejection{RegionCode: code, Reason: RejectAggregate})
			continue
		}
		rec := raw[code]
		if rec.Values == nil {
			report.Rejected = append(report.Rejected, Rejection{RegionCode: code, Reason: RejectNoMetric})
			continue
		}

		series, malformed, ok := normalizeRegion(code, rec)
		report.MalformedPoints += malformed
		if !ok {
			report.Rejected = append(report.Rejected, Rejection{RegionCode: code, Reason: RejectNoValidPoints})
			continue
		}
		out[code] = series
	}
	return out, report
}

type point struct {
	year  int
	value float64
}

// normalizeRegion converts one raw record. It returns the number of malformed
// points it skipped and false when no valid point remains.
func normalizeRegion(code string, rec RawRegionRecord) (RegionTimeSeries, int, bool) {
	points := make([]point, 0, len(rec.Values))
	malformed := 0
	for key, raw := range rec.Values {
		year, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			malformed++
			continue
		}
		value, ok := numericValue(raw)
		if !ok {
			if raw != nil {
				malformed++
			}
			continue
		}
		points = append(points, point{year: year, value: value})
	}
	if len(points) == 0 {
		return RegionTimeSeries{}, malformed, false
	}

	// Map keys are unique strings but " 2019" and "2019" parse to the same
	// year; the first after sorting is kept and which one that is is unspecified.
	sort.SliceStable(points, func(i, j int) bool { return points[i].year < points[j].year })

	years := make([]int, 0, len(points))
	values := make([]float64, 0, len(points))
	for i, p := range points {
		if i > 0 && p.year == points[i-1].year {
			continue
		}
		years = append(years, p.year)
		values = append(values, p.value)
	}

	last := len(years) - 1
	return RegionTimeSeries{
		RegionCode:  code,
		DisplayName: displayName(code, rec.DisplayName),
		Years:       years,
		Values:      values,
		LatestYear:  years[last],
		LatestValue: values[last],
		Trend:       classifyTrend(years, values),
		MaxValue:    slices.Max(values),
		MinValue:    slices.Min(values),
	}, malformed, true
}

// classifyTrend compares the first and last points of the window
// [latest-5, latest]. A window with a single point is stable. Equal endpoints
// classify as decreasing.
func classifyTrend(years []int, values []float64) Trend {
	last := len(years) - 1
	start := sort.SearchInts(years, years[last]-trendWindowYears)
	if last-start+1 < 2 {
		return TrendStable
	}
	if values[last] > values[start] {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// numericValue accepts the number shapes encoding/json and callers produce.
// NaN and infinities are not usable metric values.
func numericValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
