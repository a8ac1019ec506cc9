package videodl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls []Invocation
	// results[i] is returned by the i-th call; a nil entry writes outputName.
	results    []error
	outputName string
}

func (f *fakeRunner) Run(ctx context.Context, inv Invocation) error {
	f.calls = append(f.calls, inv)
	idx := len(f.calls) - 1
	if idx < len(f.results) && f.results[idx] != nil {
		return f.results[idx]
	}
	if f.outputName != "" {
		dir := filepath.Dir(inv.Output)
		return os.WriteFile(filepath.Join(dir, f.outputName), []byte("video"), 0o644)
	}
	return nil
}

func TestFetchFirstTry(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{outputName: "Clip [abc].mp4"}
	f := NewFetcher(runner, FetcherOpts{}, zap.NewNop())

	retried := false
	path, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/abc/", dir, func(*DownloadError) { retried = true })
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Clip [abc].mp4"), path)
	assert.False(t, retried)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "https://www.instagram.com/reel/abc/", runner.calls[0].URL)
	assert.Equal(t, filepath.Join(dir, "%(title)s [%(id)s].%(ext)s"), runner.calls[0].Output)
	assert.False(t, runner.calls[0].SkipCertCheck)
}

func TestFetchRetriesOnceWithoutCertCheck(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		results:    []error{&DownloadError{ExitCode: 1, Stderr: "ERROR: certificate verify failed"}},
		outputName: "Clip [abc].mp4",
	}
	f := NewFetcher(runner, FetcherOpts{}, zap.NewNop())

	var seen *DownloadError
	path, err := f.Fetch(context.Background(), "https://vt.tiktok.com/ZS/", dir, func(e *DownloadError) { seen = e })
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Clip [abc].mp4"), path)
	require.NotNil(t, seen)
	assert.Contains(t, seen.Stderr, "certificate verify failed")
	require.Len(t, runner.calls, 2)
	assert.False(t, runner.calls[0].SkipCertCheck)
	assert.True(t, runner.calls[1].SkipCertCheck)
}

func TestFetchGivesUpAfterOneRetry(t *testing.T) {
	runner := &fakeRunner{results: []error{
		&DownloadError{ExitCode: 1, Stderr: "ERROR: first"},
		&DownloadError{ExitCode: 1, Stderr: "ERROR: second"},
	}}
	f := NewFetcher(runner, FetcherOpts{}, zap.NewNop())

	retries := 0
	_, err := f.Fetch(context.Background(), "https://vt.tiktok.com/ZS/", t.TempDir(), func(*DownloadError) { retries++ })

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, "ERROR: second", dlErr.Stderr)
	assert.Equal(t, 1, retries)
	assert.Len(t, runner.calls, 2)
}

func TestFetchWrapsPlainErrors(t *testing.T) {
	boom := errors.New("exec: \"yt-dlp\": executable file not found in $PATH")
	runner := &fakeRunner{results: []error{boom, boom}}
	f := NewFetcher(runner, FetcherOpts{}, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://vt.tiktok.com/ZS/", t.TempDir(), nil)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.Contains(dlErr.Stderr, "executable file not found"))
}

func TestFetchNoFiles(t *testing.T) {
	f := NewFetcher(&fakeRunner{}, FetcherOpts{}, zap.NewNop())
	_, err := f.Fetch(context.Background(), "https://vt.tiktok.com/ZS/", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestFetchPassesCookiesAndProxy(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape"), 0o600))

	runner := &fakeRunner{outputName: "a.mp4"}
	f := NewFetcher(runner, FetcherOpts{
		OutputTemplate: "%(id)s.%(ext)s",
		CookiesFile:    cookies,
		Proxies:        []string{"http://proxy:8080"},
	}, zap.NewNop())

	dir := t.TempDir()
	_, err := f.Fetch(context.Background(), "https://www.instagram.com/p/abc/", dir, nil)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, cookies, runner.calls[0].CookiesFile)
	assert.Equal(t, "http://proxy:8080", runner.calls[0].Proxy)
	assert.Equal(t, filepath.Join(dir, "%(id)s.%(ext)s"), runner.calls[0].Output)
}

func TestFindOutputSkipsPartials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4.part"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b [id].mp4"), nil, 0o644))

	path, err := FindOutput(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b [id].mp4"), path)
}
