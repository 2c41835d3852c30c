package logs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTailReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chansync.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, err := Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"three", "four"}) {
		t.Errorf("lines = %v", lines)
	}
}

func TestTailShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chansync.log")
	if err := os.WriteFile(path, []byte("only\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, err := Tail(path, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"only"}) {
		t.Errorf("lines = %v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	lines, err := Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("lines = %v, want none", lines)
	}
}
