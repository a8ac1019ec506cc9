package util

import "os"

// CookiesFile returns path when it names an existing file. yt-dlp aborts on a
// missing --cookies file, so an unreadable path is treated as unset.
func CookiesFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
