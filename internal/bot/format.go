package bot

import (
	"fmt"
	"os"
)

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

// checkUploadSize fails early for files the chat API would reject anyway.
func checkUploadSize(path string, limit int64, network string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > limit {
		return fmt.Errorf("file is %s, over the %s upload limit of %s", formatSize(info.Size()), network, formatSize(limit))
	}
	return nil
}
