package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chansync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllReportsMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ytdlp.Binary = "clearly-not-present-binary"

	results := RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if Passed(results) {
		t.Fatal("expected at least one failing check")
	}

	var sawYtdlp bool
	for _, result := range results {
		if result.Name == "yt-dlp" {
			sawYtdlp = true
			if result.Passed {
				t.Fatalf("yt-dlp check should fail: %#v", result)
			}
		}
	}
	if !sawYtdlp {
		t.Fatal("expected a yt-dlp check result")
	}
}

func TestRunAllPassesWithStubBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cfg.Ytdlp.Binary = stub

	results := RunAll(context.Background(), cfg)
	if !Passed(results) {
		t.Fatalf("expected all checks to pass, got %#v", results)
	}
}
