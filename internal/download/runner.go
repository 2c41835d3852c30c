package download

import (
	"context"
	"log/slog"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/keystore"
	"chansync/internal/logging"
	"chansync/internal/statestore"
)

// Stats summarizes one channel's download pass.
type Stats struct {
	Succeeded int
	Failed    int
	Blocked   int
	Skipped   int
}

// Runner drains a channel's download queue through the executor, one
// blocking call at a time, and persists the state store after every result
// so an interrupted run resumes with only the remaining queued ids.
type Runner struct {
	store    *statestore.Store
	keys     *keystore.Store
	executor catalog.DownloadExecutor
	policy   config.Policy
	logger   *slog.Logger
}

// NewRunner constructs a runner.
func NewRunner(store *statestore.Store, keys *keystore.Store, executor catalog.DownloadExecutor, policy config.Policy, logger *slog.Logger) *Runner {
	return &Runner{
		store:    store,
		keys:     keys,
		executor: executor,
		policy:   policy,
		logger:   logging.NewComponentLogger(logger, "download"),
	}
}

// Run fetches every queued item in catalog order. Bookkeeping per result:
// success moves the id to saved, a permanent error moves it to blocked, a
// transient failure removes it from the queue for retry on the next run.
func (r *Runner) Run(ctx context.Context, st *statestore.State, records map[string]*catalog.VideoRecord, order []string) (Stats, error) {
	logger := logging.WithContext(ctx, r.logger)
	var stats Stats

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !st.Queued.Contains(id) {
			continue
		}
		record, ok := records[id]
		if !ok {
			continue
		}

		if r.policy.PreventDownload {
			stats.Skipped++
			logger.Info("hypothetical: download item",
				logging.Bool(logging.FieldDryRun, true),
				logging.String("item", id),
				logging.String("target", record.OutputPath),
			)
			continue
		}

		result, err := r.executor.Fetch(ctx, record)
		if err != nil && result == catalog.ResultSuccess {
			// An executor reporting success alongside an error is ambiguous;
			// ambiguity is always retryable, never sticky.
			result = catalog.ResultFailure
		}

		switch result {
		case catalog.ResultSuccess:
			stats.Succeeded++
			st.Queued.Remove(id)
			st.Saved.Add(id)
			if putErr := r.keys.Put(ctx, record); putErr != nil {
				logger.Warn("key store update failed", logging.String("item", id), logging.Error(putErr))
			}
			logger.Info("download item",
				logging.String("item", id),
				logging.String("path", record.OutputPath),
			)
		case catalog.ResultError:
			stats.Blocked++
			st.Queued.Remove(id)
			st.Blocked.Add(id)
			logger.Warn("download rejected permanently; blocking item",
				logging.String("item", id),
				logging.Error(err),
			)
		default:
			stats.Failed++
			st.Queued.Remove(id)
			logger.Warn("download failed; will retry next run",
				logging.String("item", id),
				logging.Error(err),
			)
		}

		// Crash-recovery checkpoint: a restart sees only the remaining
		// queued ids.
		if err := r.store.Save(st); err != nil {
			st.ErrorFlag = true
			return stats, err
		}
	}

	return stats, nil
}
