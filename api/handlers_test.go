/*
handlers_test.go - HTTP tests for the census API

Tests for:
- Status code mapping of census error kinds
- Request decoding and response shapes
- Metrics endpoint wiring
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/census-tracker/census"
	"github.com/warp/census-tracker/metrics"
	"github.com/warp/census-tracker/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(sqlite.MemoryLocation)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tracker := census.NewTracker(store, census.WithMetrics(m))
	router := NewRouter(NewHandler(tracker, nil), RouterOptions{Metrics: m, Gatherer: reg})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func seedRiverside(t *testing.T, srv *httptest.Server) {
	t.Helper()
	status, _ := do(t, srv, http.MethodPost, "/api/districts",
		CreateDistrictRequest{Name: "Riverside", Region: "North", AreaSqKm: 10})
	require.Equal(t, http.StatusCreated, status)
	for year, pop := range map[int]int64{2020: 1000, 2021: 1100} {
		status, body := do(t, srv, http.MethodPost, "/api/districts/Riverside/census",
			RecordCensusRequest{Year: year, Population: pop, Households: pop / 2})
		require.Equal(t, http.StatusCreated, status, string(body))
	}
}

// =============================================================================
// DISTRICT ENDPOINT TESTS
// =============================================================================

func TestCreateDistrict(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/districts", CreateDistrictRequest{Name: "Riverside"})
	require.Equal(t, http.StatusCreated, status)
	d := decode[census.District](t, body)
	assert.NotZero(t, d.ID)
	assert.Equal(t, census.DefaultRegion, d.Region)
	assert.Equal(t, census.DefaultDistrictType, d.DistrictType)

	status, body = do(t, srv, http.MethodPost, "/api/districts", CreateDistrictRequest{Name: "Riverside"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_district", decode[ErrorResponse](t, body).Code)
}

func TestCreateDistrict_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/api/districts", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, srv, http.MethodPost, "/api/districts", CreateDistrictRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, body).Code)
}

func TestListDistricts(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)
	do(t, srv, http.MethodPost, "/api/districts", CreateDistrictRequest{Name: "Dune", Region: "South"})

	status, body := do(t, srv, http.MethodGet, "/api/districts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decode[ListDistrictsResponse](t, body).Count)

	status, body = do(t, srv, http.MethodGet, "/api/districts?region=South", nil)
	require.Equal(t, http.StatusOK, status)
	resp := decode[ListDistrictsResponse](t, body)
	require.Len(t, resp.Districts, 1)
	assert.Equal(t, "Dune", resp.Districts[0].Name)
}

func TestRecordCensus_Errors(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown district", "/api/districts/Nowhere/census", RecordCensusRequest{Year: 2020, Population: 1}, http.StatusNotFound},
		{"missing year", "/api/districts/Riverside/census", RecordCensusRequest{Population: 1}, http.StatusBadRequest},
		{"negative population", "/api/districts/Riverside/census", RecordCensusRequest{Year: 2020, Population: -1}, http.StatusBadRequest},
		{"malformed body", "/api/districts/Riverside/census", "[", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}
}

// =============================================================================
// REPORTING ENDPOINT TESTS
// =============================================================================

func TestGetSummary(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)

	status, body := do(t, srv, http.MethodGet, "/api/districts/Riverside/summary", nil)
	require.Equal(t, http.StatusOK, status)
	s := decode[census.PopulationSummary](t, body)
	assert.Equal(t, 2021, s.LatestYear)
	assert.Equal(t, 110.0, s.DensityPerSqKm)
	assert.Equal(t, 10.0, s.YoYGrowth)

	do(t, srv, http.MethodPost, "/api/districts", CreateDistrictRequest{Name: "Empty"})
	status, body = do(t, srv, http.MethodGet, "/api/districts/Empty/summary", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no_census_data", decode[ErrorResponse](t, body).Code)

	status, body = do(t, srv, http.MethodGet, "/api/districts/Missing/summary", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "district_not_found", decode[ErrorResponse](t, body).Code)
}

func TestRegionalReport_Shapes(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)

	status, body := do(t, srv, http.MethodGet, "/api/regions/North/report", nil)
	require.Equal(t, http.StatusOK, status)
	totals := decode[map[string]any](t, body)
	assert.Equal(t, "North", totals["region"])
	assert.Equal(t, 1.0, totals["districts_with_data"])
	assert.Equal(t, 1100.0, totals["total_population"])
	assert.Equal(t, 2.0, totals["avg_household_size"])

	status, body = do(t, srv, http.MethodGet, "/api/regions/Atlantis/report", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"region":"Atlantis","districts":0}`, string(body))
}

func TestStatusAndExport(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)

	status, body := do(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, status)
	st := decode[census.Status](t, body)
	assert.Equal(t, 1, st.Districts)
	assert.Equal(t, 2, st.CensusRecords)
	assert.Equal(t, "2020–2021", st.YearRange)

	status, body = do(t, srv, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, status)
	exp := decode[census.Export](t, body)
	assert.NotEmpty(t, exp.ExportID)
	assert.Len(t, exp.Districts, 1)
	assert.Len(t, exp.CensusRecords, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedRiverside(t, srv)

	status, body := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "census_districts_registered_total 1")
	assert.Contains(t, string(body), "census_record_writes_total 2")
	assert.Contains(t, string(body), `route="/api/districts/{name}/census"`)
}

// =============================================================================
// STATUS MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", census.ErrInvalidInput), http.StatusBadRequest},
		{&census.DistrictNotFoundError{Name: "x"}, http.StatusNotFound},
		{&census.NoCensusDataError{Name: "x"}, http.StatusNotFound},
		{&census.DuplicateDistrictError{Name: "x"}, http.StatusConflict},
		{census.ErrConstraintViolation, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
