package videodl

import (
	"path/filepath"
	"strings"
)

// Title derives the video title from a file written with the
// "%(title)s [%(id)s].%(ext)s" template.
func Title(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if strings.Contains(name, "[") && strings.Contains(name, "]") {
		title, _, _ := strings.Cut(name, " [")
		return title
	}
	return name
}

func Caption(path, downloadURL string) string {
	return Title(path) + "\n" + downloadURL
}
