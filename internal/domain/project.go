package domain

import (
	"math"
	"slices"
)

const (
	lowerPercentile = 5
	upperPercentile = 95
)

// Viewport is the caller-held globe rotation. The projector forwards it untouched.
type Viewport struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// NeutralViewport is used when the caller supplies none.
var NeutralViewport = Viewport{Lon: 0, Lat: 0}

// ColorOverride pins either bound of the color domain. Nil fields are computed.
type ColorOverride struct {
	Min *float64
	Max *float64
}

// ColorDomain is the [ZMin, ZMax] range a color scale is stretched across.
type ColorDomain struct {
	ZMin float64 `json:"zmin"`
	ZMax float64 `json:"zmax"`
}

// FramePoint is one region's value in a frame.
type FramePoint struct {
	RegionCode  string  `json:"region_code"`
	MapCode     string  `json:"map_code"`
	Value       float64 `json:"value"`
	DisplayName string  `json:"display_name"`
}

// RenderFrame is everything a renderer needs to draw one year.
type RenderFrame struct {
	Year     int          `json:"year"`
	Points   []FramePoint `json:"points"`
	ZMin     float64      `json:"zmin"`
	ZMax     float64      `json:"zmax"`
	Viewport Viewport     `json:"viewport"`
}

// Project builds the frame for year. A zero year selects the table's default
// year. Regions without a value for the year render their latest value.
func Project(table *Table, year int, viewport *Viewport, override ColorOverride) RenderFrame {
	if year == 0 {
		year = table.DefaultYear()
	}
	vp := NeutralViewport
	if viewport != nil {
		vp = *viewport
	}

	points := make([]FramePoint, 0, len(table.codes))
	values := make([]float64, 0, len(table.codes))
	for _, code := range table.codes {
		r := table.regions[code]
		v := r.ValueOrLatest(year)
		points = append(points, FramePoint{
			RegionCode:  code,
			MapCode:     MapCode(code),
			Value:       v,
			DisplayName: r.DisplayName,
		})
		values = append(values, v)
	}

	colors := ResolveColorDomain(values, table.MaxLatestValue(), override)
	return RenderFrame{
		Year:     year,
		Points:   points,
		ZMin:     colors.ZMin,
		ZMax:     colors.ZMax,
		Viewport: vp,
	}
}

// ResolveColorDomain clips the scale to the 5th..95th percentile of values.
// fallbackMax is used when the upper bound ends up non-positive; when it is
// non-positive too the upper bound is 1. A collapsed range resets ZMin to 0.
func ResolveColorDomain(values []float64, fallbackMax float64, override ColorOverride) ColorDomain {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var zmin, zmax float64
	if override.Min != nil {
		zmin = *override.Min
	} else {
		zmin = math.Max(0, percentile(sorted, lowerPercentile))
	}
	if override.Max != nil {
		zmax = *override.Max
	} else {
		zmax = percentile(sorted, upperPercentile)
		if zmax <= 0 && len(sorted) > 0 {
			zmax = sorted[len(sorted)-1]
		}
	}

	if math.IsNaN(zmax) || zmax <= 0 {
		zmax = 1
		if fallbackMax > 0 {
			zmax = fallbackMax
		}
	}
	if zmax <= zmin {
		zmin = 0
	}
	return ColorDomain{ZMin: zmin, ZMax: zmax}
}

// percentile interpolates linearly between the closest ranks of sorted,
// matching numpy's default method. Empty input yields 0.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	h := float64(n-1) * p / 100
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
