package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/services"
)

type fakeExecutor struct {
	stdout []byte
	stderr []byte
	err    error
	runs   [][]string
	onRun  func(args []string)
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
	f.runs = append(f.runs, args)
	if f.onRun != nil {
		f.onRun(args)
	}
	return f.stdout, f.stderr, f.err
}

func newClient(t *testing.T, exec Executor) *Client {
	t.Helper()
	client, err := New(config.Ytdlp{Binary: "yt-dlp", TimeoutSeconds: 60}, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestFetchChannelItemsParsesPlaylist(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte(`{
		"id": "UC123",
		"entries": [
			{"id": "v1", "title": "First Video", "url": "https://example.com/v1"},
			{"id": "", "title": "ghost entry"},
			{"id": "v2", "title": "Second Video", "url": "https://example.com/v2"}
		]
	}`)}
	client := newClient(t, exec)

	items, err := client.FetchChannelItems(context.Background(), config.Channel{ID: "c", URL: "https://example.com/c"})
	if err != nil {
		t.Fatalf("FetchChannelItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (blank id skipped)", len(items))
	}
	if items[0].ID != "v1" || items[1].ID != "v2" {
		t.Errorf("unexpected order: %#v", items)
	}
	if items[0].Title != "First Video" {
		t.Errorf("title = %q", items[0].Title)
	}
	if len(exec.runs) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.runs))
	}
	args := exec.runs[0]
	if args[0] != "--flat-playlist" {
		t.Errorf("args = %v, want flat-playlist probe", args)
	}
}

func TestFetchChannelItemsWrapsToolFailure(t *testing.T) {
	exec := &fakeExecutor{stderr: []byte("ERROR: This channel does not exist\n"), err: errors.New("exit status 1")}
	client := newClient(t, exec)

	_, err := client.FetchChannelItems(context.Background(), config.Channel{ID: "c", URL: "u"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestFetchChannelItemsRejectsMalformedOutput(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("not json")}
	client := newClient(t, exec)

	if _, err := client.FetchChannelItems(context.Background(), config.Channel{ID: "c", URL: "u"}); err == nil {
		t.Fatal("expected error for malformed output")
	}
}

func TestDownloaderSuccessRequiresFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Video.mp4")
	exec := &fakeExecutor{onRun: func([]string) {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			panic(err)
		}
	}}
	client := newClient(t, exec)
	downloader := client.Downloader(config.Channel{ID: "c", Format: "mp4"})

	result, err := downloader.Fetch(context.Background(), &catalog.VideoRecord{
		ID: "v1", URL: "https://example.com/v1", OutputPath: path,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result != catalog.ResultSuccess {
		t.Errorf("result = %v, want success", result)
	}
}

func TestDownloaderMissingFileIsFailure(t *testing.T) {
	exec := &fakeExecutor{}
	client := newClient(t, exec)
	downloader := client.Downloader(config.Channel{ID: "c"})

	result, err := downloader.Fetch(context.Background(), &catalog.VideoRecord{
		ID: "v1", URL: "u", OutputPath: filepath.Join(t.TempDir(), "missing.mp4"),
	})
	if err == nil {
		t.Fatal("expected error when reported file is absent")
	}
	if result != catalog.ResultFailure {
		t.Errorf("result = %v, want failure", result)
	}
}

func TestDownloaderClassifiesPermanentRejection(t *testing.T) {
	exec := &fakeExecutor{
		stderr: []byte("ERROR: [youtube] v1: Video unavailable. This video has been removed\n"),
		err:    errors.New("exit status 1"),
	}
	client := newClient(t, exec)
	downloader := client.Downloader(config.Channel{ID: "c"})

	result, err := downloader.Fetch(context.Background(), &catalog.VideoRecord{ID: "v1", URL: "u", OutputPath: "/tmp/x.mp4"})
	if err == nil {
		t.Fatal("expected error")
	}
	if result != catalog.ResultError {
		t.Errorf("result = %v, want error (permanent)", result)
	}
}

func TestDownloaderAmbiguousFailureIsTransient(t *testing.T) {
	exec := &fakeExecutor{
		stderr: []byte("ERROR: unable to download video data: HTTP Error 503\n"),
		err:    errors.New("exit status 1"),
	}
	client := newClient(t, exec)
	downloader := client.Downloader(config.Channel{ID: "c"})

	result, _ := downloader.Fetch(context.Background(), &catalog.VideoRecord{ID: "v1", URL: "u", OutputPath: "/tmp/x.mp4"})
	if result != catalog.ResultFailure {
		t.Errorf("result = %v, want failure (retryable)", result)
	}
}

func TestFormatSelector(t *testing.T) {
	if got := formatSelector("mp4"); got != "bestvideo[ext=mp4]+bestaudio/best[ext=mp4]/best" {
		t.Errorf("formatSelector(mp4) = %q", got)
	}
	if got := formatSelector("bestaudio"); got != "bestaudio" {
		t.Errorf("custom selector must pass through, got %q", got)
	}
}
