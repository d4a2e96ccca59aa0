package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freecal/internal/config"
	"freecal/internal/model"
)

const sampleCSV = `Event Name,Weekday,Time,Repeating Weekly?,Event Type
Standup,Monday,9:00-9:15,yes,work
Essay,Funday,23:59,,school
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0o600))

	cfg := config.DefaultConfig()
	cfg.Input = input
	cfg.CacheDir = filepath.Join(dir, "cache")
	return cfg
}

func doRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAPISchedule(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "monday", resp.WeekStart)
	assert.Equal(t, 2, resp.EventCount)
	require.Len(t, resp.Days, model.NumWeekdays)
	assert.Equal(t, "Monday", resp.Days[0].Day)
	assert.Equal(t, "Sunday", resp.Days[6].Day)

	monday := resp.Days[0]
	require.Len(t, monday.Entries, 1)
	assert.Equal(t, "Standup", monday.Entries[0].Name)
	assert.Equal(t, "9:00 - 9:15", monday.Entries[0].Label)
	assert.True(t, monday.Entries[0].Repeats)

	require.Len(t, monday.Free, 2)
	assert.Equal(t, freeDTO{Start: 0, End: 540, Label: "0:00 - 9:00"}, monday.Free[0])
	assert.Equal(t, freeDTO{Start: 555, End: 1440, Label: "9:15 - 24:00"}, monday.Free[1])

	// The "Funday" token drops but the diagnostics record it.
	assert.Equal(t, 1, resp.Diagnostics.DroppedTokens)
	assert.Equal(t, 0, resp.Diagnostics.MalformedTimes)
}

func TestAPIScheduleSundayFirst(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.WeekStart = "sunday"
	s := NewServer(cfg)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Sunday", resp.Days[0].Day)
	assert.Equal(t, "Saturday", resp.Days[6].Day)
}

func TestBasicAuthGatesEverythingButHealth(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "cal", Password: "secret"}
	s := NewServer(cfg)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.SetBasicAuth("cal", "wrong")
	rec = doRequest(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.SetBasicAuth("cal", "secret")
	rec = doRequest(t, s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportText(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/report.txt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Standup [work] (weekly)")
	assert.Contains(t, rec.Body.String(), "free: 9:15 - 24:00")
}

func TestViewHTML(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
	assert.Contains(t, rec.Body.String(), "Standup")
}

func TestViewUnknownPath(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshInvalidatesCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s := NewServer(cfg)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var before scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Equal(t, 2, before.EventCount)

	// Append a row; the cached result must survive until the refresh.
	updated := sampleCSV + "Gym,Tuesday,18:00-19:00,no,personal\n"
	require.NoError(t, os.WriteFile(cfg.Input, []byte(updated), 0o600))

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	var stale scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stale))
	assert.Equal(t, 2, stale.EventCount)

	rec = doRequest(t, s, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	var after scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, 3, after.EventCount)
}

func TestRefreshRequiresPost(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPreviewWithoutSnapshot(t *testing.T) {
	t.Parallel()

	s := NewServer(testConfig(t))
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewServesSnapshotFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Snapshot = filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, os.WriteFile(cfg.Snapshot, []byte("not-really-a-png"), 0o600))
	s := NewServer(cfg)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not-really-a-png", rec.Body.String())
}

func TestScheduleLoadFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Input = filepath.Join(t.TempDir(), "gone.csv")
	s := NewServer(cfg)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
