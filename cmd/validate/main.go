// Command validate performs offline integrity checks on the cached build
// artifacts: record invariants of the processed artifact, recomputed derived
// statistics, projection sanity, and parity with the raw artifact when one is
// present.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -processed data/emissions_processed.json \
//	  -raw data/owid_co2_raw.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/adapter/cache"
	"github.com/couchcryptid/emissions-globe-service/internal/adapter/owid"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/google/go-cmp/cmp"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	processedPath := flag.String("processed", filepath.Join("data", cache.ProcessedArtifact), "path to the processed artifact")
	rawPath := flag.String("raw", filepath.Join("data", cache.RawArtifact), "path to the raw artifact; skipped when missing")
	flag.Parse()

	os.Exit(run(*processedPath, *rawPath))
}

func run(processedPath, rawPath string) int {
	fmt.Println("=== Emissions Artifact Validation ===")
	fmt.Println()

	processed, err := loadJSON[map[string]domain.RegionTimeSeries](processedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load processed artifact: %v\n", err)
		return 1
	}

	raw, err := loadRaw(rawPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Printf("  Note: no raw artifact at %s, parity phase skipped\n", rawPath)
	case err != nil:
		fmt.Fprintf(os.Stderr, "FATAL: load raw artifact: %v\n", err)
		return 1
	}

	table := domain.NewTable(processed, time.Now())

	phases := []*phase{
		validateRecords(processed),
		validateDerived(processed),
		validateProjection(table),
	}
	if raw != nil {
		phases = append(phases, validateRawParity(raw, processed))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	first, last := table.YearRange()
	fmt.Println()
	fmt.Printf("Records: %d processed, %d serveable, years %d-%d\n", len(processed), table.Len(), first, last)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadRaw(path string) (domain.RawDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return owid.DecodeRawArtifact(data)
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

// ── Phase 1: Record invariants ──

func validateRecords(processed map[string]domain.RegionTimeSeries) *phase {
	p := &phase{name: "Phase 1: Record Invariants"}

	if len(processed) == 0 {
		p.errorf("artifact contains no regions")
	}
	for code, r := range processed {
		if code != r.RegionCode {
			p.errorf("%s: stored under key but country_code is %q", code, r.RegionCode)
		}
		if domain.IsAggregate(code) {
			p.errorf("%s: aggregate region present", code)
		}
		if r.DisplayName == "" {
			p.errorf("%s: empty country_name", code)
		}
		if err := r.Validate(); err != nil {
			p.errorf("%v", err)
		}
	}
	return p
}

// ── Phase 2: Derived statistics ──
// Re-normalizes each series from its own points and compares the derived
// fields with what is stored.

func validateDerived(processed map[string]domain.RegionTimeSeries) *phase {
	p := &phase{name: "Phase 2: Derived Statistics"}

	for code, r := range processed {
		if len(r.Years) != len(r.Values) {
			continue // reported by phase 1
		}
		values := make(map[string]any, len(r.Years))
		for i, y := range r.Years {
			values[strconv.Itoa(y)] = r.Values[i]
		}
		again, ok := domain.Normalize(domain.RawDataset{code: {DisplayName: r.DisplayName, Values: values}})[code]
		if !ok {
			continue
		}
		if again.Trend != r.Trend {
			p.errorf("%s: trend: stored %q, recomputed %q", code, r.Trend, again.Trend)
		}
		if again.LatestYear != r.LatestYear || again.LatestValue != r.LatestValue {
			p.errorf("%s: latest: stored %d=%g, recomputed %d=%g", code, r.LatestYear, r.LatestValue, again.LatestYear, again.LatestValue)
		}
		if again.MinValue != r.MinValue || again.MaxValue != r.MaxValue {
			p.errorf("%s: extrema: stored [%g, %g], recomputed [%g, %g]", code, r.MinValue, r.MaxValue, again.MinValue, again.MaxValue)
		}
	}
	return p
}

// ── Phase 3: Projection ──

func validateProjection(table *domain.Table) *phase {
	p := &phase{name: "Phase 3: Projection Sanity"}

	first, last := table.YearRange()
	for _, year := range []int{first, table.DefaultYear(), last + 1} {
		frame := domain.Project(table, year, nil, domain.ColorOverride{})
		if len(frame.Points) != table.Len() {
			p.errorf("year %d: %d points for %d regions", year, len(frame.Points), table.Len())
		}
		if frame.ZMax <= 0 || frame.ZMax <= frame.ZMin || frame.ZMin < 0 {
			p.errorf("year %d: degenerate color domain [%g, %g]", year, frame.ZMin, frame.ZMax)
		}
		for _, pt := range frame.Points {
			r, _ := table.Region(pt.RegionCode)
			if want := r.ValueOrLatest(year); pt.Value != want {
				p.errorf("year %d: %s renders %g, expected %g", year, pt.RegionCode, pt.Value, want)
			}
			if pt.MapCode != domain.MapCode(pt.RegionCode) {
				p.errorf("year %d: %s has map code %q", year, pt.RegionCode, pt.MapCode)
			}
		}
	}
	return p
}

// ── Phase 4: Raw parity ──

func validateRawParity(raw domain.RawDataset, processed map[string]domain.RegionTimeSeries) *phase {
	p := &phase{name: "Phase 4: Raw Artifact Parity"}

	if diff := cmp.Diff(domain.Normalize(raw), processed); diff != "" {
		p.errorf("processed artifact differs from normalized raw artifact (-raw +processed):\n%s", diff)
	}
	return p
}
