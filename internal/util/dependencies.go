package util

import (
	"os/exec"
)

type Dependency struct {
	Name     string
	Required bool
	Path     string
	Found    bool
}

// CheckDependencies looks up the downloader binary (required) and ffmpeg, which
// yt-dlp needs to merge separate audio and video streams.
func CheckDependencies(downloader string) []Dependency {
	if downloader == "" {
		downloader = "yt-dlp"
	}
	deps := []Dependency{
		{Name: downloader, Required: true},
		{Name: "ffmpeg", Required: false},
		{Name: "ffprobe", Required: false},
	}

	for i := range deps {
		path, err := exec.LookPath(deps[i].Name)
		if err != nil {
			continue
		}
		deps[i].Path = path
		deps[i].Found = true
	}
	return deps
}

func MissingRequired(deps []Dependency) []string {
	var missing []string
	for _, d := range deps {
		if d.Required && !d.Found {
			missing = append(missing, d.Name)
		}
	}
	return missing
}
