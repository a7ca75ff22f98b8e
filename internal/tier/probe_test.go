package tier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var errProbe = errors.New("probe failed")

func TestProcMeminfoProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	content := "MemTotal:       16384000 kB\nMemFree:         1024000 kB\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ProcMeminfoProbe{Path: path}.TotalRAMGB()
	if err != nil {
		t.Fatalf("TotalRAMGB failed: %v", err)
	}
	want := 16384000.0 / (1024 * 1024)
	if got != want {
		t.Errorf("got %.3f GB, want %.3f GB", got, want)
	}
}

func TestProcMeminfoProbeMissingFile(t *testing.T) {
	_, err := ProcMeminfoProbe{Path: filepath.Join(t.TempDir(), "nope")}.TotalRAMGB()
	if err == nil {
		t.Fatal("expected error for missing meminfo")
	}
}

func TestProcMeminfoProbeNoMemTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	if err := os.WriteFile(path, []byte("MemFree: 12 kB\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := (ProcMeminfoProbe{Path: path}).TotalRAMGB(); err == nil {
		t.Fatal("expected error when MemTotal is absent")
	}
}
