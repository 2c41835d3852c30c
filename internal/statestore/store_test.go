package statestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestLoadFirstRunReturnsEmptyState(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Load("news")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Queued.Len() != 0 || st.Saved.Len() != 0 || st.Blocked.Len() != 0 {
		t.Error("first-run state should be empty")
	}
	if st.ErrorFlag {
		t.Error("error flag should start false")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	st := NewState("news")
	st.Queued.Add("v1")
	st.Queued.Add("v2")
	st.Saved.Add("v3")
	st.Blocked.Add("v4")

	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("news")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Queued.IDs(); len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Errorf("queued = %v", got)
	}
	if !loaded.Saved.Contains("v3") || !loaded.Blocked.Contains("v4") {
		t.Error("saved/blocked not round-tripped")
	}
}

func TestSaveEnforcesPrecedenceOrder(t *testing.T) {
	store := newTestStore(t)

	// v1 appears in all three sets; blocked must win over saved, saved over
	// queued. v2 is queued and saved; saved wins.
	st := NewState("news")
	st.Queued.Add("v1")
	st.Saved.Add("v1")
	st.Blocked.Add("v1")
	st.Queued.Add("v2")
	st.Saved.Add("v2")

	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if st.Queued.Contains("v1") || st.Queued.Contains("v2") {
		t.Errorf("queued after save = %v", st.Queued.IDs())
	}
	if st.Saved.Contains("v1") {
		t.Error("blocked should take precedence over saved")
	}
	if !st.Blocked.Contains("v1") {
		t.Error("v1 should remain blocked")
	}
	if !st.Saved.Contains("v2") {
		t.Error("v2 should remain saved")
	}

	// Disjointness holds for every pair.
	for _, id := range st.Queued.IDs() {
		if st.Saved.Contains(id) || st.Blocked.Contains(id) {
			t.Errorf("id %s violates disjointness", id)
		}
	}
	for _, id := range st.Saved.IDs() {
		if st.Blocked.Contains(id) {
			t.Errorf("id %s in both saved and blocked", id)
		}
	}
}

func TestSaveWritesCleanLineOrientedFiles(t *testing.T) {
	store := newTestStore(t)

	st := NewState("ch")
	st.Saved.Add("v1")
	st.Saved.Add("v2")
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "ch-save.txt"))
	if err != nil {
		t.Fatalf("read save list: %v", err)
	}
	if string(data) != "v1\nv2\n" {
		t.Errorf("save list content = %q", data)
	}

	queue, err := os.ReadFile(filepath.Join(store.Dir(), "ch-queue.txt"))
	if err != nil {
		t.Fatalf("read queue list: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("empty set should produce empty file, got %q", queue)
	}
}

func TestLoadSkipsBlankAndDuplicateLines(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "ch-queue.txt")
	if err := os.WriteFile(path, []byte("v1\n\n  \nv1\nv2\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	st, err := store.Load("ch")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := st.Queued.IDs(); len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Errorf("queued = %v", got)
	}
}

func TestDataCacheLifecycle(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteDataCache("ch", []byte(`{"items":[]}`)); err != nil {
		t.Fatalf("WriteDataCache: %v", err)
	}
	data, err := store.ReadDataCache("ch")
	if err != nil {
		t.Fatalf("ReadDataCache: %v", err)
	}
	if string(data) != `{"items":[]}` {
		t.Errorf("cache content = %q", data)
	}

	if err := store.CleanupData("ch"); err != nil {
		t.Fatalf("CleanupData: %v", err)
	}
	data, err = store.ReadDataCache("ch")
	if err != nil {
		t.Fatalf("ReadDataCache after cleanup: %v", err)
	}
	if data != nil {
		t.Error("cache should be gone after cleanup")
	}

	// Core lists survive a data cleanup.
	st := NewState("ch")
	st.Saved.Add("v1")
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.CleanupData("ch"); err != nil {
		t.Fatalf("CleanupData again: %v", err)
	}
	reloaded, err := store.Load("ch")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.Saved.Contains("v1") {
		t.Error("CleanupData must not touch the id lists")
	}
}

func TestAppendCallLog(t *testing.T) {
	store := newTestStore(t)

	if err := store.AppendCallLog("ch", "run abc queued=2"); err != nil {
		t.Fatalf("AppendCallLog: %v", err)
	}
	if err := store.AppendCallLog("ch", "run def queued=0"); err != nil {
		t.Fatalf("AppendCallLog: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "ch-callLog.txt"))
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("call log lines = %d, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[0], "run abc queued=2") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestIDSetBasics(t *testing.T) {
	set := NewIDSet("b", "a", "b", " ", "c")
	if got := set.IDs(); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Errorf("IDs = %v", got)
	}
	if set.Add("a") {
		t.Error("duplicate Add should report no change")
	}
	if !set.Remove("a") {
		t.Error("Remove existing should report change")
	}
	if set.Remove("zz") {
		t.Error("Remove missing should report no change")
	}
	set.RemoveAll(NewIDSet("b"))
	if set.Len() != 1 || !set.Contains("c") {
		t.Errorf("after RemoveAll: %v", set.IDs())
	}
}
