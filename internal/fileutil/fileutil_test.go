package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("destination content = %q, want %q", data, "payload")
	}
}

func TestMoveFileCreatesTargetDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp4")
	dst := filepath.Join(dir, "nested", "deeper", "b.mp4")

	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "video" {
		t.Errorf("destination content = %q, want %q", data, "video")
	}
}

func TestWriteFileAtomicReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")

	if err := WriteFileAtomic(path, []byte("one\n"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two\n"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "two\n" {
		t.Errorf("content = %q, want %q", data, "two\n")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestExistsExact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Episode One.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ok, err := ExistsExact(path)
	if err != nil {
		t.Fatalf("ExistsExact: %v", err)
	}
	if !ok {
		t.Error("expected exact match for existing file")
	}

	ok, err = ExistsExact(filepath.Join(dir, "missing.mp4"))
	if err != nil {
		t.Fatalf("ExistsExact missing: %v", err)
	}
	if ok {
		t.Error("expected no match for missing file")
	}

	ok, err = ExistsExact(dir)
	if err != nil {
		t.Fatalf("ExistsExact dir: %v", err)
	}
	if ok {
		t.Error("directories must not count as existing files")
	}
}
