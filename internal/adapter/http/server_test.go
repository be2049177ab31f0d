package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/emissions-globe-service/internal/adapter/http"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type staticTables struct {
	table *domain.Table
}

func (s staticTables) Table() *domain.Table { return s.table }

var builtAt = time.Date(2026, time.February, 3, 4, 5, 6, 0, time.UTC)

func sampleTable() *domain.Table {
	return domain.NewTable(domain.Normalize(domain.RawDataset{
		"OWID_USA": {DisplayName: "United States", Values: map[string]any{"2019": 5250.0, "2020": 4700.0, "2021": 5000.0}},
		"OWID_FRA": {DisplayName: "France", Values: map[string]any{"2020": 280.0}},
		"OWID_WRL": {DisplayName: "World", Values: map[string]any{"2021": 37000.0}},
	}), builtAt)
}

func newTestServer(readyErr error, table *domain.Table) (*httpadapter.Server, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, staticTables{table: table}, metrics, logger), metrics
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	rec := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	rec := do(t, srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIUnavailableBeforeBuild(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	for _, target := range []string{"/api/meta", "/api/frame", "/api/regions", "/api/regions/OWID_USA", "/api/resolve?name=France"} {
		rec := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestJSONResponsesCarryContentType(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	for target, status := range map[string]int{
		"/api/meta":             http.StatusOK,
		"/api/frame?year=abc":   http.StatusBadRequest,
		"/api/regions/OWID_XXX": http.StatusNotFound,
	} {
		rec := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, status, rec.Code, target)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), target)
	}

	srv, _ = newTestServer(nil, nil)
	rec := do(t, srv, http.MethodGet, "/api/meta", "")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
}

func TestMeta(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	rec := do(t, srv, http.MethodGet, "/api/meta", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"regions":2,"first_year":2019,"last_year":2021,"default_year":2021,"built_at":"2026-02-03T04:05:06Z"}`, rec.Body.String())
}

func TestFrame_Defaults(t *testing.T) {
	srv, metrics := newTestServer(nil, sampleTable())
	rec := do(t, srv, http.MethodGet, "/api/frame", "")

	require.Equal(t, http.StatusOK, rec.Code)
	frame := decode[domain.RenderFrame](t, rec)
	assert.Equal(t, 2021, frame.Year)
	assert.Equal(t, domain.NeutralViewport, frame.Viewport)
	require.Len(t, frame.Points, 2)
	assert.Equal(t, domain.FramePoint{RegionCode: "OWID_FRA", MapCode: "FRA", Value: 280, DisplayName: "France"}, frame.Points[0])
	assert.Equal(t, 5000.0, frame.Points[1].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesProjected))
}

func TestFrame_Parameters(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	rec := do(t, srv, http.MethodGet, "/api/frame?year=2019&lon=-97.5&zmin=10&zmax=6000", "")

	require.Equal(t, http.StatusOK, rec.Code)
	frame := decode[domain.RenderFrame](t, rec)
	assert.Equal(t, 2019, frame.Year)
	assert.Equal(t, domain.Viewport{Lon: -97.5, Lat: 0}, frame.Viewport)
	assert.Equal(t, 10.0, frame.ZMin)
	assert.Equal(t, 6000.0, frame.ZMax)
	assert.Equal(t, 5250.0, frame.Points[1].Value)
}

func TestFrame_BadParameters(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	for _, q := range []string{"year=abc", "year=-1", "lon=east", "lat=NaN", "zmin=x", "zmax=Inf"} {
		t.Run(q, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/frame?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestViewport(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := do(t, srv, http.MethodPost, "/api/viewport", `{"current":{"lon":10,"lat":20},"relayout":{"geo.projection.rotation.lon":-40}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Viewport{Lon: -40, Lat: 20}, decode[domain.Viewport](t, rec))

	rec = do(t, srv, http.MethodPost, "/api/viewport", `{"relayout":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NeutralViewport, decode[domain.Viewport](t, rec))

	rec = do(t, srv, http.MethodPost, "/api/viewport", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegions(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())
	rec := do(t, srv, http.MethodGet, "/api/regions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"code":"OWID_FRA","name":"France","latest_year":2020,"latest_value":280,"trend":"stable"},
		{"code":"OWID_USA","name":"United States","latest_year":2021,"latest_value":5000,"trend":"decreasing"}
	]`, rec.Body.String())
}

func TestRegionDetail(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())

	rec := do(t, srv, http.MethodGet, "/api/regions/OWID_USA", "")
	require.Equal(t, http.StatusOK, rec.Code)
	usa := decode[domain.RegionTimeSeries](t, rec)
	assert.Equal(t, []int{2019, 2020, 2021}, usa.Years)
	assert.Equal(t, 5250.0, usa.MaxValue)
	assert.Equal(t, 4700.0, usa.MinValue)

	rec = do(t, srv, http.MethodGet, "/api/regions/OWID_WRL", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolve(t *testing.T) {
	srv, _ := newTestServer(nil, sampleTable())

	tests := []struct {
		query  string
		status int
		code   string
	}{
		{"name=France", http.StatusOK, "OWID_FRA"},
		{"location=USA", http.StatusOK, "OWID_USA"},
		{"name=Atlantis&location=FRA", http.StatusOK, "OWID_FRA"},
		{"name=Atlantis", http.StatusNotFound, ""},
		{"", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/resolve?"+tt.query, "")
			require.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[map[string]string](t, rec)["code"])
			}
		})
	}
}
