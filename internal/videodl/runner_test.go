//go:build !windows

package videodl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYtdlp writes an executable that records its argv, one per line, plus the
// value of USERBOT_RUNNER_MARK, then exits with exitCode.
func fakeYtdlp(t *testing.T, exitCode int) (binary, record string) {
	t.Helper()
	dir := t.TempDir()
	record = filepath.Join(dir, "record")
	binary = filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" > '" + record + "'\n" +
		"printf 'mark=%s\\n' \"$USERBOT_RUNNER_MARK\" >> '" + record + "'\n" +
		"echo 'ERROR: fake failure' >&2\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, record
}

func readRecord(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func TestYtdlpRunnerArgs(t *testing.T) {
	t.Setenv("USERBOT_RUNNER_MARK", "inherited")
	binary, record := fakeYtdlp(t, 0)
	out := filepath.Join(t.TempDir(), "%(title)s [%(id)s].%(ext)s")
	url := "https://www.instagram.com/reel/abc/"

	err := NewYtdlpRunner(binary).Run(context.Background(), Invocation{URL: url, Output: out})
	require.NoError(t, err)

	lines := readRecord(t, record)
	require.NotEmpty(t, lines)
	mark := lines[len(lines)-1]
	args := lines[:len(lines)-1]

	assert.Equal(t, "mark=inherited", mark)
	assert.Equal(t, url, args[len(args)-1])
	i := indexOf(args, "--output")
	require.GreaterOrEqual(t, i, 0, "args: %v", args)
	assert.Equal(t, out, args[i+1])
	assert.Equal(t, -1, indexOf(args, "--no-check-certificates"))
}

func TestYtdlpRunnerRetryFlags(t *testing.T) {
	binary, record := fakeYtdlp(t, 0)
	url := "https://vt.tiktok.com/ZSabc/"

	err := NewYtdlpRunner(binary).Run(context.Background(), Invocation{
		URL:           url,
		Output:        filepath.Join(t.TempDir(), "%(id)s.%(ext)s"),
		SkipCertCheck: true,
		CookiesFile:   "/tmp/cookies.txt",
		Proxy:         "socks5://127.0.0.1:1080",
	})
	require.NoError(t, err)

	args := readRecord(t, record)
	args = args[:len(args)-1]
	assert.GreaterOrEqual(t, indexOf(args, "--no-check-certificates"), 0, "args: %v", args)
	if i := indexOf(args, "--cookies"); assert.GreaterOrEqual(t, i, 0) {
		assert.Equal(t, "/tmp/cookies.txt", args[i+1])
	}
	if i := indexOf(args, "--proxy"); assert.GreaterOrEqual(t, i, 0) {
		assert.Equal(t, "socks5://127.0.0.1:1080", args[i+1])
	}
	assert.Equal(t, url, args[len(args)-1])
}

func TestYtdlpRunnerFailure(t *testing.T) {
	binary, _ := fakeYtdlp(t, 2)

	err := NewYtdlpRunner(binary).Run(context.Background(), Invocation{
		URL:    "https://www.instagram.com/reel/abc/",
		Output: filepath.Join(t.TempDir(), "%(id)s.%(ext)s"),
	})
	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr), "got %v", err)
	assert.NotZero(t, dlErr.ExitCode)
}
