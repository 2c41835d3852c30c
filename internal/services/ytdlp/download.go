package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"chansync/internal/catalog"
	"chansync/internal/config"
)

// permanentMarkers are stderr fragments that identify a confirmed remote
// rejection. Anything else, including timeouts and killed subprocesses, is
// treated as transient: the outcome is ambiguous, not a proven rejection.
var permanentMarkers = []string{
	"video unavailable",
	"private video",
	"has been removed",
	"account associated with this video has been terminated",
	"this video is not available",
}

// Downloader fetches single items for one channel. It implements the
// download executor contract: ResultError only for confirmed rejections,
// ResultFailure for everything ambiguous.
type Downloader struct {
	client *Client
	format string
}

// Downloader binds the client to a channel's download format.
func (c *Client) Downloader(ch config.Channel) *Downloader {
	return &Downloader{client: c, format: ch.Format}
}

// Fetch downloads one item to its resolved output path.
func (d *Downloader) Fetch(ctx context.Context, record *catalog.VideoRecord) (catalog.Result, error) {
	if record == nil || record.URL == "" {
		return catalog.ResultFailure, errors.New("record missing source url")
	}

	runCtx := ctx
	if d.client.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.client.timeout)
		defer cancel()
	}

	args := []string{"-o", record.OutputPath, "--no-warnings", "--no-progress"}
	if d.format != "" {
		args = append(args, "-f", formatSelector(d.format))
	}
	args = append(args, record.URL)

	_, stderr, err := d.client.exec.Run(runCtx, d.client.binary, args)
	if err == nil {
		if _, statErr := os.Stat(record.OutputPath); statErr != nil {
			return catalog.ResultFailure, fmt.Errorf("download finished but file missing: %w", statErr)
		}
		return catalog.ResultSuccess, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return catalog.ResultFailure, fmt.Errorf("download timed out after %s", d.client.timeout.Round(time.Second))
	}
	if classifyStderr(stderr) == catalog.ResultError {
		return catalog.ResultError, fmt.Errorf("remote rejected item: %s", firstLine(stderr))
	}
	return catalog.ResultFailure, fmt.Errorf("yt-dlp failed: %w: %s", err, firstLine(stderr))
}

// classifyStderr maps yt-dlp diagnostics onto the tri-state result.
func classifyStderr(stderr []byte) catalog.Result {
	lowered := strings.ToLower(string(stderr))
	for _, marker := range permanentMarkers {
		if strings.Contains(lowered, marker) {
			return catalog.ResultError
		}
	}
	return catalog.ResultFailure
}

// formatSelector turns a bare container name into a yt-dlp format
// expression that prefers that container but still merges separate streams.
func formatSelector(format string) string {
	switch format {
	case "mp4", "webm", "mkv":
		return fmt.Sprintf("bestvideo[ext=%s]+bestaudio/best[ext=%s]/best", format, format)
	default:
		return format
	}
}
