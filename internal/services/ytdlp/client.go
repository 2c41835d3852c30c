package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr []byte, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions. It serves both the catalog listing
// and, via Downloader, the per-item fetch.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a yt-dlp client from config.
func New(cfg config.Ytdlp, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchChannelItems lists the channel's current catalog with a single
// flat-playlist probe. The returned items preserve remote order.
func (c *Client) FetchChannelItems(ctx context.Context, ch config.Channel) ([]catalog.Item, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"--flat-playlist", "-J", "--no-warnings", ch.URL}
	stdout, stderr, err := c.exec.Run(runCtx, c.binary, args)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTransient, "ytdlp", "list",
				fmt.Sprintf("channel %s: listing timed out", ch.ID), err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "list",
			fmt.Sprintf("channel %s: %s", ch.ID, firstLine(stderr)), err)
	}

	items, err := parsePlaylist(stdout)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "list",
			fmt.Sprintf("channel %s: unreadable playlist output", ch.ID), err)
	}
	return items, nil
}

// parsePlaylist decodes yt-dlp's flat-playlist JSON into catalog items,
// skipping entries without an id.
func parsePlaylist(data []byte) ([]catalog.Item, error) {
	var playlist struct {
		Entries []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}
	items := make([]catalog.Item, 0, len(playlist.Entries))
	for _, entry := range playlist.Entries {
		if strings.TrimSpace(entry.ID) == "" {
			continue
		}
		items = append(items, catalog.Item{ID: entry.ID, Title: entry.Title, URL: entry.URL})
	}
	return items, nil
}

// firstLine extracts the first non-empty stderr line for error summaries.
func firstLine(stderr []byte) string {
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "no output"
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
