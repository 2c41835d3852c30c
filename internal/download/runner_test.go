package download

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/keystore"
	"chansync/internal/logging"
	"chansync/internal/statestore"
	"chansync/internal/testsupport"
)

type env struct {
	store *statestore.Store
	keys  *keystore.Store
	dir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	base := t.TempDir()
	store, err := statestore.NewStore(filepath.Join(base, "state"))
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	keys, err := keystore.Open(filepath.Join(base, "keys.db"))
	if err != nil {
		t.Fatalf("key store: %v", err)
	}
	t.Cleanup(func() { keys.Close() })
	return &env{store: store, keys: keys, dir: filepath.Join(base, "media")}
}

func (e *env) records(ids ...string) (map[string]*catalog.VideoRecord, []string) {
	records := make(map[string]*catalog.VideoRecord, len(ids))
	for _, id := range ids {
		records[id] = &catalog.VideoRecord{
			ID:         id,
			Title:      id,
			OutputPath: filepath.Join(e.dir, id+".mp4"),
		}
	}
	return records, ids
}

func TestRunBookkeeping(t *testing.T) {
	e := newEnv(t)
	st := statestore.NewState("news")
	st.Queued.Add("v1")
	st.Queued.Add("v2")
	st.Queued.Add("v3")

	executor := &testsupport.Executor{
		Results: map[string]catalog.Result{
			"v2": catalog.ResultError,
			"v3": catalog.ResultFailure,
		},
		Errs: map[string]error{
			"v2": errors.New("video unavailable"),
			"v3": errors.New("timeout"),
		},
	}
	runner := NewRunner(e.store, e.keys, executor, config.Policy{}, logging.NewNop())

	records, order := e.records("v1", "v2", "v3")
	stats, err := runner.Run(context.Background(), st, records, order)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Succeeded != 1 || stats.Blocked != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !st.Saved.Contains("v1") {
		t.Error("v1 should be saved after success")
	}
	if !st.Blocked.Contains("v2") {
		t.Error("v2 should be blocked after permanent error")
	}
	if st.Queued.Len() != 0 {
		t.Errorf("queue should be drained, got %v", st.Queued.IDs())
	}
	if st.Blocked.Contains("v3") || st.Saved.Contains("v3") {
		t.Error("transient failure must leave v3 unlisted for retry next run")
	}

	// Success upserts the key store.
	entry, err := e.keys.Get(context.Background(), "v1")
	if err != nil {
		t.Fatalf("key store get: %v", err)
	}
	if entry == nil || entry.LocalPath != records["v1"].OutputPath {
		t.Errorf("key store entry = %+v", entry)
	}
}

func TestRunPersistsAfterEachResult(t *testing.T) {
	e := newEnv(t)
	st := statestore.NewState("news")
	st.Queued.Add("v1")
	st.Queued.Add("v2")

	executor := &testsupport.Executor{
		Results: map[string]catalog.Result{"v2": catalog.ResultFailure},
	}
	runner := NewRunner(e.store, e.keys, executor, config.Policy{}, logging.NewNop())

	records, order := e.records("v1", "v2")
	if _, err := runner.Run(context.Background(), st, records, order); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The on-disk state reflects the final checkpoint.
	reloaded, err := e.store.Load("news")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.Saved.Contains("v1") {
		t.Error("persisted state missing v1 in saved")
	}
	if reloaded.Queued.Len() != 0 {
		t.Errorf("persisted queue = %v", reloaded.Queued.IDs())
	}
}

func TestRunSkipsUnqueuedAndUnknownIDs(t *testing.T) {
	e := newEnv(t)
	st := statestore.NewState("news")
	st.Queued.Add("v2")
	st.Saved.Add("v1")

	executor := &testsupport.Executor{}
	runner := NewRunner(e.store, e.keys, executor, config.Policy{}, logging.NewNop())

	records, _ := e.records("v1", "v2")
	stats, err := runner.Run(context.Background(), st, records, []string{"v1", "v2", "v9"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(executor.Fetched) != 1 || executor.Fetched[0] != "v2" {
		t.Errorf("fetched = %v", executor.Fetched)
	}
}

func TestPreventDownloadLeavesQueueIntact(t *testing.T) {
	e := newEnv(t)
	st := statestore.NewState("news")
	st.Queued.Add("v1")

	executor := &testsupport.Executor{}
	runner := NewRunner(e.store, e.keys, executor, config.Policy{PreventDownload: true}, logging.NewNop())

	records, order := e.records("v1")
	stats, err := runner.Run(context.Background(), st, records, order)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Skipped != 1 || stats.Succeeded != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(executor.Fetched) != 0 {
		t.Error("executor must not be called in dry-run mode")
	}
	if !st.Queued.Contains("v1") {
		t.Error("queue must be left intact in dry-run mode")
	}
	if _, err := os.Stat(records["v1"].OutputPath); !os.IsNotExist(err) {
		t.Error("no file may be written in dry-run mode")
	}
}

func TestDryRunMirrorsRealDownloadMessage(t *testing.T) {
	e := newEnv(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	st := statestore.NewState("news")
	st.Queued.Add("v1")
	records, order := e.records("v1")
	runner := NewRunner(e.store, e.keys, &testsupport.Executor{}, config.Policy{}, logger)
	if _, err := runner.Run(context.Background(), st, records, order); err != nil {
		t.Fatalf("Run: %v", err)
	}

	st = statestore.NewState("news")
	st.Queued.Add("v2")
	records, order = e.records("v2")
	dryRunner := NewRunner(e.store, e.keys, &testsupport.Executor{}, config.Policy{PreventDownload: true}, logger)
	if _, err := dryRunner.Run(context.Background(), st, records, order); err != nil {
		t.Fatalf("dry-run Run: %v", err)
	}

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		msgs = append(msgs, entry.Msg)
	}

	var real, hypothetical string
	for _, msg := range msgs {
		if strings.HasPrefix(msg, "hypothetical: ") {
			hypothetical = msg
		} else if strings.HasPrefix(msg, "download") {
			real = msg
		}
	}
	if real == "" || hypothetical == "" {
		t.Fatalf("missing download messages in %v", msgs)
	}
	if hypothetical != "hypothetical: "+real {
		t.Errorf("dry-run message %q does not mirror real message %q", hypothetical, real)
	}
}

func TestAmbiguousSuccessDowngradesToFailure(t *testing.T) {
	e := newEnv(t)
	st := statestore.NewState("news")
	st.Queued.Add("v1")

	executor := &testsupport.Executor{
		Errs: map[string]error{"v1": errors.New("connection reset mid-transfer")},
	}
	runner := NewRunner(e.store, e.keys, executor, config.Policy{}, logging.NewNop())

	records, order := e.records("v1")
	stats, err := runner.Run(context.Background(), st, records, order)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 || stats.Succeeded != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if st.Saved.Contains("v1") || st.Blocked.Contains("v1") {
		t.Error("ambiguous result must be treated as transient failure")
	}
}
