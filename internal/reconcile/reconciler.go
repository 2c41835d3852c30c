package reconcile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/fileutil"
	"chansync/internal/keystore"
	"chansync/internal/logging"
	"chansync/internal/services"
	"chansync/internal/statestore"
)

// Outcome carries the per-run artifacts of a reconciliation pass: the video
// records for every catalog item (with resolved output paths), the catalog
// order, and the number of physical renames performed.
type Outcome struct {
	Records map[string]*catalog.VideoRecord
	Order   []string
	Renames int
}

// Reconciler computes the queued/saved/blocked partition for a channel's
// catalog against local filesystem reality, performing in-place renames
// where safe.
type Reconciler struct {
	keys   *keystore.Store
	policy config.Policy
	logger *slog.Logger
}

// New constructs a reconciler. The policy value is immutable for the
// reconciler's lifetime; construct a new one to change switches.
func New(keys *keystore.Store, policy config.Policy, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		keys:   keys,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Reconcile walks the catalog in order and decides, per item, whether its
// file already exists (possibly under an old name), whether it stays
// blocked, or whether it must be queued for download. The state is mutated
// in place; the caller persists it.
func (r *Reconciler) Reconcile(ctx context.Context, ch config.Channel, outputDir string, items *catalog.List, st *statestore.State) (*Outcome, error) {
	logger := logging.WithContext(ctx, r.logger)
	scheme := catalog.NewScheme(ch.Format)

	out := &Outcome{Records: make(map[string]*catalog.VideoRecord, items.Len())}
	claimed := make(map[string]string, items.Len())

	for _, item := range items.Items() {
		id := item.ID

		// Tentatively drop the saved status; it is re-added below only when
		// the file is confirmed to exist.
		st.Saved.Remove(id)

		name := scheme.FileName(item.Title, id)
		if owner, taken := claimed[name]; taken {
			logger.Warn("file name collision",
				logging.String("file", name),
				logging.String("owner_item", owner),
				logging.String("item", id),
			)
		} else {
			claimed[name] = id
		}

		expected := filepath.Join(outputDir, name)
		record := &catalog.VideoRecord{ID: id, Title: item.Title, URL: item.URL, OutputPath: expected}
		out.Records[id] = record
		out.Order = append(out.Order, id)

		exists, err := fileutil.ExistsExact(expected)
		if err != nil {
			return nil, services.Wrap(services.ErrStateIO, "reconcile", "check file", expected, err)
		}
		if exists {
			r.markSaved(ctx, logger, st, record)
			continue
		}

		if st.Blocked.Contains(id) && !r.policy.RetryFailed {
			st.Queued.Remove(id)
			logger.Info("skipping blocked item",
				logging.String("item", id),
				logging.String("reason", "previous permanent failure; run with retry to re-evaluate"),
			)
			continue
		}

		oldPath, found, err := r.findPrevious(ctx, logger, scheme, outputDir, item, expected)
		if err != nil {
			return nil, err
		}
		if found {
			r.adoptExisting(logger, scheme, record, oldPath, expected, out)
			r.markSaved(ctx, logger, st, record)
			continue
		}

		st.Queued.Add(id)
		logger.Debug("queued for download", logging.String("item", id), logging.String("target", expected))
	}

	r.dropStaleQueued(logger, st, out.Records)
	return out, nil
}

func (r *Reconciler) markSaved(ctx context.Context, logger *slog.Logger, st *statestore.State, record *catalog.VideoRecord) {
	st.Saved.Add(record.ID)
	st.Blocked.Remove(record.ID)
	st.Queued.Remove(record.ID)
	if err := r.keys.Put(ctx, record); err != nil {
		// The key store is a lookup aid; a failed upsert costs at worst a
		// rescan on the next run.
		logger.Warn("key store update failed", logging.String("item", record.ID), logging.Error(err))
	}
}

// findPrevious searches for an already-downloaded file for the item: first
// the key store entry, then a filesystem scan for the prior naming
// convention. When both hit different files the first match wins; the tie is
// logged because it can silently pick the wrong file for near-duplicate
// titles.
func (r *Reconciler) findPrevious(ctx context.Context, logger *slog.Logger, scheme catalog.Scheme, outputDir string, item *catalog.Item, expected string) (string, bool, error) {
	var candidates []string

	entry, err := r.keys.Get(ctx, item.ID)
	if err != nil {
		logger.Warn("key store lookup failed", logging.String("item", item.ID), logging.Error(err))
	} else if entry != nil && entry.LocalPath != expected {
		if info, statErr := os.Stat(entry.LocalPath); statErr == nil && !info.IsDir() {
			candidates = append(candidates, entry.LocalPath)
		}
	}

	if legacy := scheme.LegacyFileName(item.Title); legacy != "" {
		legacyPath := filepath.Join(outputDir, legacy)
		if legacyPath != expected && !containsPath(candidates, legacyPath) {
			if info, statErr := os.Stat(legacyPath); statErr == nil && !info.IsDir() {
				candidates = append(candidates, legacyPath)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return "", false, nil
	case 1:
	default:
		logger.Warn("ambiguous previous-file match; taking first",
			logging.String("item", item.ID),
			logging.String("chosen", candidates[0]),
			logging.String("ignored", candidates[1]),
		)
	}
	return candidates[0], true, nil
}

// adoptExisting re-points the record at a located old file, moving it to the
// expected path when the names differ and renaming is allowed.
func (r *Reconciler) adoptExisting(logger *slog.Logger, scheme catalog.Scheme, record *catalog.VideoRecord, oldPath, expected string, out *Outcome) {
	oldBase := filepath.Base(oldPath)
	expectedBase := filepath.Base(expected)

	if scheme.Reformat(oldBase) == expectedBase {
		record.OutputPath = oldPath
		logger.Info("recognized existing file",
			logging.String("item", record.ID),
			logging.String("path", oldPath),
		)
		return
	}

	if r.policy.PreventRename {
		record.OutputPath = oldPath
		logger.Info("hypothetical: rename file",
			logging.Bool(logging.FieldDryRun, true),
			logging.String("item", record.ID),
			logging.String("from", oldPath),
			logging.String("to", expected),
		)
		return
	}

	if err := fileutil.MoveFile(oldPath, expected); err != nil {
		// Leave the file where it is and keep the item saved so it is not
		// downloaded twice; the rename is retried on the next run.
		record.OutputPath = oldPath
		logger.Warn("rename failed; keeping old path",
			logging.String("item", record.ID),
			logging.String("from", oldPath),
			logging.String("to", expected),
			logging.Error(err),
		)
		return
	}

	out.Renames++
	logger.Info("rename file",
		logging.String("item", record.ID),
		logging.String("from", oldPath),
		logging.String("to", expected),
	)
}

// dropStaleQueued removes queued ids that no longer appear in the catalog;
// without a catalog entry there is no URL to fetch them from. Saved ids
// outside the catalog are left untouched: destructive removal is solely the
// cleanup sweeper's responsibility.
func (r *Reconciler) dropStaleQueued(logger *slog.Logger, st *statestore.State, records map[string]*catalog.VideoRecord) {
	for _, id := range st.Queued.IDs() {
		if _, known := records[id]; !known {
			st.Queued.Remove(id)
			logger.Info("dropping queued item no longer in catalog", logging.String("item", id))
		}
	}
}

func containsPath(paths []string, path string) bool {
	for _, existing := range paths {
		if existing == path {
			return true
		}
	}
	return false
}
