package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randytsao24/reachmap/internal/api"
	"github.com/randytsao24/reachmap/internal/api/handlers"
	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/config"
	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/metrics"
	"github.com/randytsao24/reachmap/internal/models"
	"github.com/randytsao24/reachmap/internal/transit"
)

// ---------------------------------------------------------------------------
// Mock snapshot service
// ---------------------------------------------------------------------------

type mockSnapshots struct {
	data *models.TransitData
	err  error
	mode cache.Mode
}

func (m *mockSnapshots) Get(context.Context, transit.Request) (*models.TransitData, error) {
	return m.data, m.err
}

func (m *mockSnapshots) ForceRefresh(context.Context, transit.Request) (*models.TransitData, error) {
	return m.data, m.err
}

func (m *mockSnapshots) Status() cache.Status {
	return cache.Status{Mode: m.mode, Interval: 5 * time.Minute, State: cache.StateEmpty}
}

func (m *mockSnapshots) SetMode(mode cache.Mode) error {
	m.mode = mode
	return nil
}

func (m *mockSnapshots) SetInterval(time.Duration) error { return nil }

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *location.Catalog {
	t.Helper()
	catalog, err := location.DefaultCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func newController(t *testing.T, observer cache.Observer) *cache.Controller {
	t.Helper()
	catalog := testCatalog(t)
	engine := transit.NewEngine(catalog,
		transit.NewEstimator(catalog, transit.WithEstimatorLogger(quietLogger())),
		transit.WithLogger(quietLogger()))
	opts := []cache.Option{cache.WithLogger(quietLogger())}
	if observer != nil {
		opts = append(opts, cache.WithObserver(observer))
	}
	return cache.New(engine, opts...)
}

func newTestServer(t *testing.T, snapshots handlers.SnapshotService, metricsHandler http.Handler) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.HTTPTimeout = 5 * time.Second
	router := api.NewRouter(cfg, quietLogger(), "test", snapshots, testCatalog(t), metricsHandler)
	return httptest.NewServer(router)
}

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func send(t *testing.T, server *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return m
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

func assertSuccess(t *testing.T, body map[string]any) {
	t.Helper()
	if body["success"] != true {
		t.Errorf("expected success=true, body: %v", body)
	}
}

func assertField(t *testing.T, body map[string]any, field string) {
	t.Helper()
	if _, ok := body[field]; !ok {
		t.Errorf("missing field %q in response: %v", field, body)
	}
}

func points(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["points"].([]any)
	if !ok {
		t.Fatalf("points is not an array: %v", body["points"])
	}
	out := make([]map[string]any, len(raw))
	for i, p := range raw {
		out[i] = p.(map[string]any)
	}
	return out
}

// ---------------------------------------------------------------------------
// Health & root
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/health")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertField(t, body, "status")
	assertField(t, body, "uptime")
	assertField(t, body, "cache")

	if body["status"] != "OK" {
		t.Errorf("status = %v, want OK", body["status"])
	}
	if body["stations"] != float64(367) {
		t.Errorf("stations = %v, want 367", body["stations"])
	}
}

func TestAPIRoot(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/api")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	if body["name"] != "reachmap" {
		t.Errorf("name = %v, want reachmap", body["name"])
	}
	assertField(t, body, "endpoints")
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/unknown")
	assertStatus(t, resp, http.StatusNotFound)
	assertField(t, decodeBody(t, resp), "error")
}

func TestRequestIDAndCORS(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("Origin", "https://maps.example")
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	resp = get(t, srv, "/health")
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID")
	}
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestSnapshotStations(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855")
	assertStatus(t, resp, http.StatusOK)
	if resp.Header.Get("ETag") == "" {
		t.Error("expected an ETag header")
	}

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	if body["mode"] != "stations" {
		t.Errorf("mode = %v, want stations", body["mode"])
	}
	if body["live"] != true {
		t.Errorf("live = %v, want true", body["live"])
	}

	pts := points(t, body)
	if len(pts) == 0 || len(pts) > 367 {
		t.Fatalf("got %d points, want 1..367", len(pts))
	}
	if body["count"] != float64(len(pts)) {
		t.Errorf("count = %v, want %d", body["count"], len(pts))
	}

	seen := make(map[string]bool)
	for _, p := range pts {
		key := transit.LocationKey(models.Coordinate{
			Latitude:  p["latitude"].(float64),
			Longitude: p["longitude"].(float64),
		})
		if seen[key] {
			t.Errorf("duplicate rounded location %s", key)
		}
		seen[key] = true

		minutes := p["travel_time"].(float64)
		if minutes < transit.MinMinutes || minutes > transit.MaxMinutes {
			t.Errorf("travel_time %v outside [3, 90]", minutes)
		}
		if c, _ := p["color"].(string); !strings.HasPrefix(c, "#") {
			t.Errorf("color = %v, want hex", p["color"])
		}
	}
}

func TestSnapshotNotModified(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	path := "/transit/snapshot?lat=40.7580&lng=-73.9855&scheme=2"
	resp := get(t, srv, path)
	resp.Body.Close()
	etag := resp.Header.Get("ETag")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	req.Header.Set("If-None-Match", etag)
	again, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	again.Body.Close()
	assertStatus(t, again, http.StatusNotModified)

	// another scheme changes the colors and so the body
	other := get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855&scheme=3")
	other.Body.Close()
	if other.Header.Get("ETag") == etag {
		t.Error("expected a different ETag for a different scheme")
	}
}

func TestSnapshotHeatmap(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855&mode=heatmap&density=5")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	if got := len(points(t, body)); got != 25 {
		t.Errorf("got %d points, want 25", got)
	}
}

func TestSnapshotGridWithViewportCenter(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855&mode=grid&density=4&center_lat=40.70&center_lng=-73.95")
	assertStatus(t, resp, http.StatusOK)

	pts := points(t, decodeBody(t, resp))
	if len(pts) != 16 {
		t.Fatalf("got %d points, want 16", len(pts))
	}
	first := pts[0]["latitude"].(float64)
	if want := 40.70 - transit.DefaultGridRadius; first < want-1e-9 || first > want+1e-9 {
		t.Errorf("first latitude = %v, want %v", first, want)
	}
}

func TestSnapshotBadRequests(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	paths := []string{
		"/transit/snapshot",
		"/transit/snapshot?lat=40.75",
		"/transit/snapshot?lat=abc&lng=-73.98",
		"/transit/snapshot?lat=100&lng=-73.98",
		"/transit/snapshot?lat=NaN&lng=-73.98",
		"/transit/snapshot?lat=40.75&lng=-73.98&mode=isochrone",
		"/transit/snapshot?lat=40.75&lng=-73.98&mode=grid&density=500",
		"/transit/snapshot?lat=40.75&lng=-73.98&mode=grid&zoom=-2",
		"/transit/snapshot?lat=40.75&lng=-73.98&mode=heatmap&center_lat=40.7",
		"/transit/snapshot?lat=40.75&lng=-73.98&scheme=9",
	}
	for _, path := range paths {
		resp := get(t, srv, path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, want 400", path, resp.StatusCode)
		}
		assertField(t, decodeBody(t, resp), "error")
	}
}

func TestSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"superseded", cache.ErrSuperseded, http.StatusConflict},
		{"invalid density", transit.ErrInvalidDensity, http.StatusBadRequest},
		{"aborted", transit.ErrAborted, http.StatusInternalServerError},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &mockSnapshots{err: tt.err, mode: cache.Live}, nil)
			defer srv.Close()

			resp := get(t, srv, "/transit/snapshot?lat=40.75&lng=-73.98")
			assertStatus(t, resp, tt.want)
			assertField(t, decodeBody(t, resp), "error")
		})
	}
}

func TestSnapshotRefresh(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	path := "/transit/snapshot?lat=40.7580&lng=-73.9855"
	first := decodeBody(t, get(t, srv, path))

	resp := send(t, srv, http.MethodPost, "/transit/snapshot/refresh?lat=40.7580&lng=-73.9855", "")
	assertStatus(t, resp, http.StatusOK)
	refreshed := decodeBody(t, resp)
	assertSuccess(t, refreshed)

	if refreshed["generation"].(float64) <= first["generation"].(float64) {
		t.Errorf("generation did not advance: %v -> %v", first["generation"], refreshed["generation"])
	}

	cached := decodeBody(t, get(t, srv, path))
	if cached["generation"] != refreshed["generation"] {
		t.Errorf("generation = %v, want cached %v", cached["generation"], refreshed["generation"])
	}
}

// ---------------------------------------------------------------------------
// Live toggle
// ---------------------------------------------------------------------------

func TestLiveToggle(t *testing.T) {
	ctrl := newController(t, nil)
	srv := newTestServer(t, ctrl, nil)
	defer srv.Close()

	body := decodeBody(t, get(t, srv, "/transit/live"))
	if body["enabled"] != true || body["refresh_interval_minutes"] != float64(5) {
		t.Errorf("unexpected initial live status: %v", body)
	}

	resp := send(t, srv, http.MethodPut, "/transit/live", `{"enabled": false, "refresh_interval_minutes": 2}`)
	assertStatus(t, resp, http.StatusOK)
	body = decodeBody(t, resp)
	if body["enabled"] != false || body["mode"] != "frozen" {
		t.Errorf("expected frozen, got %v", body)
	}
	if ctrl.Mode() != cache.Frozen || ctrl.Interval() != 2*time.Minute {
		t.Errorf("controller mode=%s interval=%s", ctrl.Mode(), ctrl.Interval())
	}
	if ctrl.State() != cache.StateEmpty {
		t.Errorf("toggling must not compute, state = %s", ctrl.State())
	}

	snap := decodeBody(t, get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855"))
	if snap["live"] != false {
		t.Errorf("live = %v, want false", snap["live"])
	}
}

func TestLiveToggleBadRequests(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	for _, body := range []string{`{}`, `not json`, `{"refresh_interval_minutes": 0}`, `{"refresh_interval_minutes": -3}`} {
		resp := send(t, srv, http.MethodPut, "/transit/live", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("PUT %s: status = %d, want 400", body, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

// ---------------------------------------------------------------------------
// Stations & colors
// ---------------------------------------------------------------------------

func TestStationsNear(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/stations/near?lat=40.7580&lng=-73.9855&radius_km=0.8&limit=5")
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	assertSuccess(t, body)
	stations := body["stations"].([]any)
	if len(stations) == 0 || len(stations) > 5 {
		t.Fatalf("got %d stations, want 1..5", len(stations))
	}

	last := -1.0
	for _, s := range stations {
		d := s.(map[string]any)["distance_km"].(float64)
		if d < last {
			t.Errorf("stations not sorted by distance: %v after %v", d, last)
		}
		if d > 0.8 {
			t.Errorf("distance %v beyond radius", d)
		}
		last = d
	}
	if first := stations[0].(map[string]any); first["station_id"] != "times-square" {
		t.Errorf("closest station = %v, want times-square", first["station_id"])
	}
}

func TestStationsNearRequiresCoordinates(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	for _, path := range []string{"/transit/stations/near", "/transit/stations/near?lat=40.75&lng=-73.98&radius_km=-1"} {
		resp := get(t, srv, path)
		assertStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

func TestStationByID(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	resp := get(t, srv, "/transit/stations/grand-central")
	assertStatus(t, resp, http.StatusOK)
	station := decodeBody(t, resp)["station"].(map[string]any)
	if station["station_name"] != "Grand Central-42nd St" {
		t.Errorf("station_name = %v", station["station_name"])
	}

	resp = get(t, srv, "/transit/stations/nowhere")
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestColors(t *testing.T) {
	srv := newTestServer(t, newController(t, nil), nil)
	defer srv.Close()

	body := decodeBody(t, get(t, srv, "/transit/colors"))
	if schemes := body["schemes"].([]any); len(schemes) != 5 {
		t.Errorf("got %d schemes, want 5", len(schemes))
	}

	resp := get(t, srv, "/transit/colors/0?minutes=12&opacity=0.5")
	assertStatus(t, resp, http.StatusOK)
	body = decodeBody(t, resp)
	if body["color"] != "#9ACD32" || body["bucket"] != float64(2) {
		t.Errorf("unexpected color response: %v", body)
	}
	if body["rgba"] != "rgba(154, 205, 50, 0.5)" {
		t.Errorf("rgba = %v", body["rgba"])
	}

	for _, path := range []string{"/transit/colors/7?minutes=1", "/transit/colors/x?minutes=1", "/transit/colors/1"} {
		resp := get(t, srv, path)
		assertStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New("test")
	srv := newTestServer(t, newController(t, m), m.Handler())
	defer srv.Close()

	for range 2 {
		resp := get(t, srv, "/transit/snapshot?lat=40.7580&lng=-73.9855")
		resp.Body.Close()
	}

	resp := get(t, srv, "/metrics")
	assertStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	text := string(raw)

	for _, want := range []string{
		`reachmap_cache_requests_total{mode="stations",result="hit"} 1`,
		`reachmap_cache_requests_total{mode="stations",result="miss"} 1`,
		`reachmap_computations_total{mode="stations",outcome="installed"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
