package util

import (
	"regexp"
	"strings"
)

var ytdlpErrorRe = regexp.MustCompile(`(?i)ERROR[:\s]+(.+?)(?:\n|$)`)

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// YtdlpErrorLine pulls the first "ERROR: ..." line out of yt-dlp stderr, falling
// back to the last non-empty line.
func YtdlpErrorLine(stderr string) string {
	if m := ytdlpErrorRe.FindStringSubmatch(stderr); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "Download failed"
}
