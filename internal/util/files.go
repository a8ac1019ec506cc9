package util

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

// TempPrefix marks the per-download directories the bot creates. Cleanup never
// touches anything else in the temp dir.
const TempPrefix = "dl-"

func ownedTemp(name string) bool {
	return strings.HasPrefix(name, TempPrefix)
}

// ClearTempDir removes leftover download directories from dir, creating dir if
// needed.
func ClearTempDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return os.MkdirAll(dir, 0755)
	}
	for _, e := range entries {
		if ownedTemp(e.Name()) {
			os.RemoveAll(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

// CleanupStale removes download directories of dir in which nothing was
// modified for longer than retention and returns how many were removed.
func CleanupStale(dir string, retention time.Duration, logger *zap.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if !ownedTemp(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if now.Sub(lastModified(path)) <= retention {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove stale temp entry", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		logger.Info("Cleaned up old temp", zap.String("name", e.Name()))
		removed++
	}
	return removed
}

// lastModified is the newest mtime anywhere under path. A download in progress
// keeps touching its .part file, so its directory never looks stale.
func lastModified(path string) time.Time {
	var latest time.Time
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	return latest
}

func StartCleanupInterval(ctx context.Context, dir string, every, retention time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CleanupStale(dir, retention, logger)
			}
		}
	}()
}

func SanitizeFilename(filename string) string {
	s := unsafeFilenameRe.ReplaceAllString(filename, "_")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		ext := filepath.Ext(s)
		if len(ext) > 10 {
			ext = ""
		}
		s = Truncate(strings.TrimSuffix(s, ext), 200-len(ext)) + ext
	}
	return s
}
