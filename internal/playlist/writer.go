package playlist

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/fileutil"
	"chansync/internal/logging"
	"chansync/internal/services"
	"chansync/internal/statestore"
)

const header = "#EXTM3U"

// Writer rebuilds a channel's playlist manifest from the currently saved
// items. The manifest is only rewritten when its content actually changes,
// and never when the channel's run recorded an error.
type Writer struct {
	policy config.Policy
	logger *slog.Logger
}

// NewWriter constructs a playlist writer.
func NewWriter(policy config.Policy, logger *slog.Logger) *Writer {
	return &Writer{policy: policy, logger: logging.NewComponentLogger(logger, "playlist")}
}

// Write derives the ordered list of saved, existing files and persists it as
// an M3U manifest next to the channel's media. Reports whether the manifest
// was (or, in dry-run mode, would have been) rewritten.
func (w *Writer) Write(ctx context.Context, ch config.Channel, libraryDir string, st *statestore.State, records map[string]*catalog.VideoRecord, order []string) (bool, error) {
	logger := logging.WithContext(ctx, w.logger)

	if st.ErrorFlag {
		logger.Warn("skipping playlist write; run recorded an error")
		return false, nil
	}

	path := ch.PlaylistPath(libraryDir)
	dir := filepath.Dir(path)

	ids := append([]string{}, order...)
	if ch.ReversePlaylist {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteByte('\n')
	for _, id := range ids {
		if !st.Saved.Contains(id) {
			continue
		}
		record, ok := records[id]
		if !ok {
			continue
		}
		if _, err := os.Stat(record.OutputPath); err != nil {
			continue
		}
		rel, err := filepath.Rel(dir, record.OutputPath)
		if err != nil {
			rel = record.OutputPath
		}
		buf.WriteString(filepath.ToSlash(rel))
		buf.WriteByte('\n')
	}
	content := buf.Bytes()

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, services.Wrap(services.ErrStateIO, "playlist", "read manifest", path, err)
	}
	if bytes.Equal(existing, content) {
		logger.Debug("playlist unchanged", logging.String("path", path))
		return false, nil
	}

	if w.policy.PreventPlaylistEdit {
		logger.Info("hypothetical: write playlist",
			logging.Bool(logging.FieldDryRun, true),
			logging.String("path", path),
			logging.Int("entries", bytes.Count(content, []byte{'\n'})-1),
		)
		return true, nil
	}

	if err := fileutil.WriteFileAtomic(path, content, 0o644); err != nil {
		return false, services.Wrap(services.ErrStateIO, "playlist", "write manifest", path, err)
	}
	logger.Info("write playlist",
		logging.String("path", path),
		logging.Int("entries", bytes.Count(content, []byte{'\n'})-1),
	)
	return true, nil
}
