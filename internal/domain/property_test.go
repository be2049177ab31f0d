package domain

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func rawFromPoints(points map[int]float64) RawRegionRecord {
	values := make(map[string]any, len(points))
	for y, v := range points {
		values[strconv.Itoa(y)] = v
	}
	return RawRegionRecord{DisplayName: "Testland", Values: values}
}

func seriesGen() gopter.Gen {
	return gen.MapOf(gen.IntRange(1750, 2030), gen.Float64Range(-1e3, 1e5))
}

// TestNormalizeProperties checks the record invariants for arbitrary sparse series.
func TestNormalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("parallel, non-empty, strictly increasing years", prop.ForAll(
		func(points map[int]float64) bool {
			got, ok := Normalize(RawDataset{"OWID_TST": rawFromPoints(points)})["OWID_TST"]
			if len(points) == 0 {
				return !ok
			}
			if !ok || len(got.Years) != len(got.Values) || len(got.Years) != len(points) {
				return false
			}
			for i := 1; i < len(got.Years); i++ {
				if got.Years[i] <= got.Years[i-1] {
					return false
				}
			}
			return true
		},
		seriesGen(),
	))

	properties.Property("extrema bound every value", prop.ForAll(
		func(points map[int]float64) bool {
			got, ok := Normalize(RawDataset{"OWID_TST": rawFromPoints(points)})["OWID_TST"]
			if !ok {
				return len(points) == 0
			}
			for _, v := range got.Values {
				if v < got.MinValue || v > got.MaxValue {
					return false
				}
			}
			return got.Validate() == nil
		},
		seriesGen(),
	))

	properties.Property("latest point is the max year", prop.ForAll(
		func(points map[int]float64) bool {
			got, ok := Normalize(RawDataset{"OWID_TST": rawFromPoints(points)})["OWID_TST"]
			if !ok {
				return len(points) == 0
			}
			maxYear := got.Years[0]
			for y := range points {
				maxYear = max(maxYear, y)
			}
			return got.LatestYear == maxYear && got.LatestValue == points[maxYear]
		},
		seriesGen(),
	))

	properties.Property("aggregates never survive", prop.ForAll(
		func(code string, points map[int]float64) bool {
			_, ok := Normalize(RawDataset{code: rawFromPoints(points)})[code]
			return !ok
		},
		gen.OneConstOf("OWID_WRL", "OWID_EUR", "OWID_ASI", "OWID_AFR", "OWID_NAM", "OWID_SAM", "OWID_OCE", "OWID_KOS"),
		seriesGen(),
	))

	properties.TestingRun(t)
}

// TestProjectProperties checks the fallback and color-domain guarantees.
func TestProjectProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("missing years render the latest value", prop.ForAll(
		func(points map[int]float64, year int) bool {
			table := NewTable(Normalize(RawDataset{"OWID_TST": rawFromPoints(points)}), testBuiltAt)
			frame := Project(table, year, nil, ColorOverride{})
			if table.Len() == 0 {
				return len(frame.Points) == 0
			}
			r, _ := table.Region("OWID_TST")
			want, present := points[year]
			if !present {
				want = r.LatestValue
			}
			return len(frame.Points) == 1 && frame.Points[0].Value == want
		},
		gen.MapOf(gen.IntRange(1950, 2000), gen.Float64Range(0, 1e5)),
		gen.IntRange(1900, 2050),
	))

	properties.Property("color domain is never degenerate", prop.ForAll(
		func(values []float64, fallback float64) bool {
			d := ResolveColorDomain(values, fallback, ColorOverride{})
			return d.ZMax > 0 && d.ZMax > d.ZMin && d.ZMin >= 0
		},
		gen.SliceOf(gen.Float64Range(-1e6, 1e6)),
		gen.Float64Range(-10, 1e6),
	))

	properties.TestingRun(t)
}
