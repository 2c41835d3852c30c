package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/download"
	"chansync/internal/keystore"
	"chansync/internal/logging"
	"chansync/internal/playlist"
	"chansync/internal/reconcile"
	"chansync/internal/services"
	"chansync/internal/statestore"
	"chansync/internal/sweep"
	"chansync/internal/transform"
)

// ExecutorFactory binds a download executor to one channel, so per-channel
// options like the container format reach the executor.
type ExecutorFactory func(ch config.Channel) catalog.DownloadExecutor

// Manager runs the full sync pipeline: catalog fetch, pre-rules,
// reconciliation, downloads, post-rules, playlist, cleanup. Channels are
// processed sequentially; one channel's failure never aborts the others.
type Manager struct {
	cfg       *config.Config
	store     *statestore.Store
	keys      *keystore.Store
	provider  catalog.MetadataProvider
	executors ExecutorFactory
	// base is handed to sub-components, which tag their own component attr.
	base   *slog.Logger
	logger *slog.Logger
	lock   *flock.Flock
}

// New constructs a manager with initialized dependencies.
func New(cfg *config.Config, store *statestore.Store, keys *keystore.Store, provider catalog.MetadataProvider, executors ExecutorFactory, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || store == nil || keys == nil || provider == nil || executors == nil {
		return nil, errors.New("workflow requires config, stores, provider, and executor factory")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		keys:      keys,
		provider:  provider,
		executors: executors,
		base:      logger,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		lock:      flock.New(filepath.Join(cfg.Paths.StateDir, "chansync.lock")),
	}, nil
}

// Run processes every configured channel once. It holds an exclusive lock
// for the whole run; the state layout assumes a single active writer.
func (m *Manager) Run(ctx context.Context) (*Summary, error) {
	ok, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another chansync instance is already running")
	}
	defer func() {
		if unlockErr := m.lock.Unlock(); unlockErr != nil {
			m.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	summary := &Summary{RunID: runID}

	m.logger.Info("sync run starting",
		logging.String(logging.FieldRunID, runID),
		logging.Int("channels", len(m.cfg.Channels)),
	)

	for _, ch := range m.cfg.Channels {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		chSummary := m.runChannel(ctx, ch)
		summary.Channels = append(summary.Channels, chSummary)
		if chSummary.Err != nil {
			m.logger.Error("channel sync failed",
				logging.String(logging.FieldChannel, ch.ID),
				logging.Error(chSummary.Err),
			)
		}
	}
	return summary, nil
}

func (m *Manager) runChannel(ctx context.Context, ch config.Channel) ChannelSummary {
	ctx = services.WithChannel(ctx, ch.ID)
	logger := logging.WithContext(ctx, m.logger)
	summary := ChannelSummary{ChannelID: ch.ID}

	rules, err := transform.Resolve(ch)
	if err != nil {
		summary.Err = err
		return summary
	}

	st, err := m.store.Load(ch.ID)
	if err != nil {
		summary.Err = err
		return summary
	}
	fail := func(err error) ChannelSummary {
		if services.IsFatal(err) {
			st.ErrorFlag = true
		}
		summary.Err = err
		summary.ErrorFlag = st.ErrorFlag
		return summary
	}

	if m.cfg.Policy.RetryFailed && st.Blocked.Len() > 0 {
		logger.Info("retry pass; clearing blocked items", logging.Int("count", st.Blocked.Len()))
		st.Blocked.Clear()
	}

	items, err := m.provider.FetchChannelItems(ctx, ch)
	if err != nil {
		return fail(err)
	}
	list := catalog.NewList(items)
	if err := rules.ApplyPre(ch, list); err != nil {
		return fail(err)
	}
	m.cacheCatalog(logger, ch, list)

	reconciler := reconcile.New(m.keys, m.cfg.Policy, m.base)
	outcome, err := reconciler.Reconcile(ctx, ch, ch.OutputDir(m.cfg.Paths.LibraryDir), list, st)
	if err != nil {
		return fail(err)
	}
	summary.Renames = outcome.Renames

	// First checkpoint: the post-reconciliation partition survives a crash.
	if err := m.store.Save(st); err != nil {
		return fail(err)
	}

	runner := download.NewRunner(m.store, m.keys, m.executors(ch), m.cfg.Policy, m.base)
	stats, err := runner.Run(ctx, st, outcome.Records, outcome.Order)
	summary.Downloads = stats
	if err != nil {
		return fail(err)
	}

	env := &transform.PostEnv{
		State:   st,
		Records: outcome.Records,
		Order:   outcome.Order,
		Policy:  m.cfg.Policy,
		Logger:  logger,
	}
	if err := rules.ApplyPost(ch, env); err != nil {
		return fail(err)
	}

	if err := m.store.Save(st); err != nil {
		return fail(err)
	}

	writer := playlist.NewWriter(m.cfg.Policy, m.base)
	changed, err := writer.Write(ctx, ch, m.cfg.Paths.LibraryDir, st, outcome.Records, outcome.Order)
	if err != nil {
		return fail(err)
	}
	summary.PlaylistChanged = changed

	sweeper := sweep.NewSweeper(m.store, m.keys, m.cfg.Policy, m.base)
	swept, err := sweeper.Sweep(ctx, m.cfg, ch, st, outcome.Records)
	if err != nil {
		return fail(err)
	}
	summary.Swept = swept

	summary.Queued = st.Queued.Len()
	summary.Saved = st.Saved.Len()
	summary.Blocked = st.Blocked.Len()
	summary.ErrorFlag = st.ErrorFlag
	runID, _ := services.RunIDFromContext(ctx)
	m.appendCallLog(logger, ch, runID, summary)
	return summary
}

// cacheCatalog persists the fetched catalog for diagnostics. The cache is
// not part of the sync state, so failures only warn.
func (m *Manager) cacheCatalog(logger *slog.Logger, ch config.Channel, list *catalog.List) {
	data, err := json.Marshal(list.Items())
	if err != nil {
		logger.Warn("encode catalog cache failed", logging.Error(err))
		return
	}
	if err := m.store.WriteDataCache(ch.ID, data); err != nil {
		logger.Warn("write catalog cache failed", logging.Error(err))
	}
}

func (m *Manager) appendCallLog(logger *slog.Logger, ch config.Channel, runID string, summary ChannelSummary) {
	line := fmt.Sprintf("run=%s queued=%d saved=%d blocked=%d succeeded=%d failed=%d renamed=%d swept=%d",
		runID, summary.Queued, summary.Saved, summary.Blocked,
		summary.Downloads.Succeeded, summary.Downloads.Failed,
		summary.Renames, summary.Swept)
	if err := m.store.AppendCallLog(ch.ID, line); err != nil {
		logger.Warn("append call log failed", logging.Error(err))
	}
}
