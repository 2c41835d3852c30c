package sweep

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/fileutil"
	"chansync/internal/keystore"
	"chansync/internal/logging"
	"chansync/internal/statestore"
)

// Sweeper deletes files in a channel's output directory that no saved item
// references. It aggregates the saved sets of the channel and all sibling
// sub-channels sharing its base id, so channels split from one catalog never
// sweep each other's files.
type Sweeper struct {
	store  *statestore.Store
	keys   *keystore.Store
	policy config.Policy
	logger *slog.Logger
}

// NewSweeper constructs a sweeper.
func NewSweeper(store *statestore.Store, keys *keystore.Store, policy config.Policy, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		keys:   keys,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "sweep"),
	}
}

// Sweep removes untracked files directly inside the channel's output
// directory. st is the channel's current in-memory state; sibling states are
// loaded from disk. records carries the current run's reconciliation records
// and is the primary path source for this channel's saved ids. When any
// saved id's local path cannot be resolved at all, the sweep is skipped
// entirely rather than risk deleting a file the resolver merely lost track
// of. Returns the number of files deleted (or, in dry-run mode, that would
// have been deleted). Individual deletion failures are logged and do not
// abort the sweep.
func (s *Sweeper) Sweep(ctx context.Context, cfg *config.Config, ch config.Channel, st *statestore.State, records map[string]*catalog.VideoRecord) (int, error) {
	logger := logging.WithContext(ctx, s.logger)

	if !ch.KeepClean {
		return 0, nil
	}
	if st.ErrorFlag {
		logger.Warn("skipping cleanup; run recorded an error")
		return 0, nil
	}

	keep, unresolved, err := s.aggregateKeepSet(ctx, cfg, ch, st, records)
	if err != nil {
		return 0, err
	}
	if len(unresolved) > 0 {
		logger.Warn("skipping cleanup; saved items have no resolvable local path",
			logging.Int("count", len(unresolved)),
			logging.String("first_item", unresolved[0]),
		)
		return 0, nil
	}

	outputDir := ch.OutputDir(cfg.Paths.LibraryDir)
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(outputDir, entry.Name())
		canonical, err := fileutil.Canonical(path)
		if err != nil {
			logger.Warn("cannot resolve file; leaving it alone",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		if _, tracked := keep[canonical]; tracked {
			continue
		}

		if s.policy.PreventDeletion {
			deleted++
			logger.Info("hypothetical: delete untracked file",
				logging.Bool(logging.FieldDryRun, true),
				logging.String("path", path),
			)
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("delete failed; continuing sweep",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		deleted++
		logger.Info("delete untracked file", logging.String("path", path))
	}
	return deleted, nil
}

// aggregateKeepSet collects the canonical paths of every saved item across
// the channel and its siblings, plus each sibling's playlist manifest. The
// key store is only a lookup aid, so each saved id is resolved through a
// chain of sources: the current run's reconciliation record, then the key
// store, then the naming scheme applied to the sibling's cached catalog
// titles. Ids that fall through every source are returned as unresolved.
func (s *Sweeper) aggregateKeepSet(ctx context.Context, cfg *config.Config, ch config.Channel, st *statestore.State, records map[string]*catalog.VideoRecord) (map[string]struct{}, []string, error) {
	keep := make(map[string]struct{})
	var unresolved []string

	addPath := func(path string) {
		if path == "" {
			return
		}
		canonical, err := fileutil.Canonical(path)
		if err != nil {
			// Missing files cannot collide with anything on disk.
			return
		}
		keep[canonical] = struct{}{}
	}

	for _, sibling := range cfg.Siblings(ch) {
		saved := st.Saved
		if sibling.ID != ch.ID {
			siblingState, err := s.store.Load(sibling.ID)
			if err != nil {
				return nil, nil, err
			}
			saved = siblingState.Saved
		}
		known, err := s.keys.PathsFor(ctx, saved.IDs())
		if err != nil {
			return nil, nil, err
		}

		scheme := catalog.NewScheme(sibling.Format)
		dir := sibling.OutputDir(cfg.Paths.LibraryDir)
		var titles map[string]string
		titlesLoaded := false

		for _, id := range saved.IDs() {
			if sibling.ID == ch.ID {
				if record, ok := records[id]; ok {
					addPath(record.OutputPath)
					continue
				}
			}
			if path, ok := known[id]; ok {
				addPath(path)
				continue
			}
			if !titlesLoaded {
				titles = s.cachedTitles(sibling.ID)
				titlesLoaded = true
			}
			title, ok := titles[id]
			if !ok {
				unresolved = append(unresolved, id)
				continue
			}
			// A recomputed name covers both conventions; the file may still
			// sit at a legacy name the sibling has not reconciled yet.
			addPath(filepath.Join(dir, scheme.FileName(title, id)))
			if legacy := scheme.LegacyFileName(title); legacy != "" {
				addPath(filepath.Join(dir, legacy))
			}
		}
		addPath(sibling.PlaylistPath(cfg.Paths.LibraryDir))
	}
	return keep, unresolved, nil
}

// cachedTitles loads a channel's cached catalog and indexes titles by id.
// The cache is best-effort diagnostics, so any read or decode problem just
// yields an empty map.
func (s *Sweeper) cachedTitles(channelID string) map[string]string {
	data, err := s.store.ReadDataCache(channelID)
	if err != nil || len(data) == 0 {
		return nil
	}
	var items []catalog.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	titles := make(map[string]string, len(items))
	for _, item := range items {
		titles[item.ID] = item.Title
	}
	return titles
}
