package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/jobs"
	"github.com/coah80/userbot/internal/middleware"
)

func newTestRouter(tracker *jobs.Tracker) http.Handler {
	return Router(config.HTTP{}, os.TempDir(), tracker, middleware.NewRateLimiter(time.Minute, 100), zap.NewNop())
}

func TestHealth(t *testing.T) {
	tracker := jobs.NewTracker(10)
	tracker.Start("TikTok", "https://tiktok.com/x").SetComplete()
	h := newTestRouter(tracker)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body struct {
		Status  string         `json:"status"`
		Version string         `json:"version"`
		Jobs    map[string]int `json:"jobs"`
		Disk    *struct {
			Total uint64 `json:"total"`
		} `json:"disk"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, config.Version, body.Version)
	assert.Equal(t, 1, body.Jobs[jobs.StatusComplete])
	require.NotNil(t, body.Disk)
	assert.Greater(t, body.Disk.Total, uint64(0))
}

func TestJobsLimit(t *testing.T) {
	tracker := jobs.NewTracker(10)
	tracker.Start("Instagram", "https://instagram.com/p/1/")
	tracker.Start("Instagram", "https://instagram.com/p/2/")
	h := newTestRouter(tracker)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Jobs []jobs.Snapshot `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "https://instagram.com/p/2/", body.Jobs[0].URL)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(jobs.NewTracker(1)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
