package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coah80/userbot/internal/config"
	"github.com/coah80/userbot/internal/jobs"
	"github.com/coah80/userbot/internal/util"
)

func CoreRoutes(r chi.Router, tracker *jobs.Tracker, tempDir string) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"version": config.Version,
			"jobs":    tracker.Counts(),
		}
		if disk, err := util.GetDiskSpace(tempDir); err == nil {
			body["disk"] = disk
		}
		respondJSON(w, 200, body)
	})

	r.Get("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		recent := tracker.Recent()
		if limit := intQuery(r, "limit", len(recent)); limit < len(recent) {
			recent = recent[:limit]
		}
		respondJSON(w, 200, map[string]interface{}{
			"jobs": recent,
		})
	})
}
