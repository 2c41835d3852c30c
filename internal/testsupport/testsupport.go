// Package testsupport provides shared fixtures for pipeline tests: a
// temp-directory config, a scripted metadata provider, and a scripted
// download executor.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chansync/internal/catalog"
	"chansync/internal/config"
)

// NewConfig returns a config rooted in a fresh temp directory with a single
// channel registered.
func NewConfig(t *testing.T, channels ...config.Channel) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LibraryDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Channels = channels
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// Provider is a scripted metadata provider.
type Provider struct {
	Items map[string][]catalog.Item
	Err   error
	Calls int
}

func (p *Provider) FetchChannelItems(_ context.Context, ch config.Channel) ([]catalog.Item, error) {
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Items[ch.ID], nil
}

// Executor is a scripted download executor. Results maps item ids to the
// outcome to report; unlisted ids succeed. On success a placeholder file is
// written at the record's output path so downstream existence checks pass.
type Executor struct {
	Results map[string]catalog.Result
	Errs    map[string]error
	Fetched []string
}

func (e *Executor) Fetch(_ context.Context, record *catalog.VideoRecord) (catalog.Result, error) {
	e.Fetched = append(e.Fetched, record.ID)
	result, ok := e.Results[record.ID]
	if !ok {
		result = catalog.ResultSuccess
	}
	err := e.Errs[record.ID]
	if result == catalog.ResultSuccess {
		if mkErr := os.MkdirAll(filepath.Dir(record.OutputPath), 0o755); mkErr != nil {
			return catalog.ResultFailure, mkErr
		}
		if wrErr := os.WriteFile(record.OutputPath, []byte("downloaded"), 0o644); wrErr != nil {
			return catalog.ResultFailure, wrErr
		}
	}
	return result, err
}
