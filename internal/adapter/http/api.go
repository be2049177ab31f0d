package http

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const maxViewportBody = 64 << 10

type metaResponse struct {
	Regions     int       `json:"regions"`
	FirstYear   int       `json:"first_year"`
	LastYear    int       `json:"last_year"`
	DefaultYear int       `json:"default_year"`
	BuiltAt     time.Time `json:"built_at"`
}

type regionSummary struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	LatestYear  int          `json:"latest_year"`
	LatestValue float64      `json:"latest_value"`
	Trend       domain.Trend `json:"trend"`
}

type viewportRequest struct {
	Current  *domain.Viewport `json:"current"`
	Relayout map[string]any   `json:"relayout"`
}

type resolveResponse struct {
	Code    string `json:"code"`
	MapCode string `json:"map_code"`
}

func (s *Server) handleMeta(w http.ResponseWriter, _ *http.Request, table *domain.Table) {
	first, last := table.YearRange()
	sharedobs.WriteJSON(w, http.StatusOK, metaResponse{
		Regions:     table.Len(),
		FirstYear:   first,
		LastYear:    last,
		DefaultYear: table.DefaultYear(),
		BuiltAt:     table.BuiltAt().UTC(),
	})
}

// handleFrame serves GET /api/frame?year=&lon=&lat=&zmin=&zmax=. Every
// parameter is optional.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, table *domain.Table) {
	q := r.URL.Query()

	year := 0
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y <= 0 {
			writeError(w, http.StatusBadRequest, "year must be a positive integer")
			return
		}
		year = y
	}

	lon, err := optionalFloat(q, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lat, err := optionalFloat(q, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var viewport *domain.Viewport
	if lon != nil || lat != nil {
		viewport = &domain.Viewport{}
		if lon != nil {
			viewport.Lon = *lon
		}
		if lat != nil {
			viewport.Lat = *lat
		}
	}

	var override domain.ColorOverride
	if override.Min, err = optionalFloat(q, "zmin"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if override.Max, err = optionalFloat(q, "zmax"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	frame := domain.Project(table, year, viewport, override)
	s.metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
	s.metrics.FramesProjected.Inc()

	sharedobs.WriteJSON(w, http.StatusOK, frame)
}

// handleViewport folds a relayout event into the caller's current viewport.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxViewportBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid viewport request body")
		return
	}

	current := domain.NeutralViewport
	if req.Current != nil {
		current = *req.Current
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.ApplyRelayout(current, req.Relayout))
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request, table *domain.Table) {
	regions := table.Regions()
	out := make([]regionSummary, 0, len(regions))
	for _, code := range table.Codes() {
		reg := regions[code]
		out = append(out, regionSummary{
			Code:        code,
			Name:        reg.DisplayName,
			LatestYear:  reg.LatestYear,
			LatestValue: reg.LatestValue,
			Trend:       reg.Trend,
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request, table *domain.Table) {
	code := r.PathValue("code")
	reg, ok := table.Region(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("region %q not found", code))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, reg)
}

// handleResolve maps a clicked point to a region code. The hover name is
// tried before the renderer location code.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, table *domain.Table) {
	q := r.URL.Query()
	name, location := q.Get("name"), q.Get("location")
	if name == "" && location == "" {
		writeError(w, http.StatusBadRequest, "name or location is required")
		return
	}

	code, ok := "", false
	if name != "" {
		code, ok = table.LookupByName(name)
	}
	if !ok && location != "" {
		code, ok = table.LookupByMapCode(location)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no region matches the selection")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, resolveResponse{Code: code, MapCode: domain.MapCode(code)})
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be a finite number", key)
	}
	return &f, nil
}
