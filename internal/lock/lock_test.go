package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "LOCK"))
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if !strings.Contains(string(data), "pid=") {
		t.Errorf("lock file missing pid line: %q", data)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "LOCK")); !os.IsNotExist(err) {
		t.Error("lock file should be removed on release")
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}

	l2, err := Acquire(tmpDir)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	defer l2.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestParsePID(t *testing.T) {
	if got := parsePID("pid=4242\ntime=2025-01-01T00:00:00Z\n"); got != 4242 {
		t.Errorf("parsePID = %d, want 4242", got)
	}
	if got := parsePID("garbage"); got != 0 {
		t.Errorf("parsePID on garbage = %d, want 0", got)
	}
}
