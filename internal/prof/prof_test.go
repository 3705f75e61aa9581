package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteMemCreatesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.out")
	if err := WriteMem(path); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("heap profile is empty")
	}
}

func TestCPUProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.out")
	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU: %v", err)
	}
	StopCPU()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("cpu profile is empty")
	}
}

func TestStartCPUBadPath(t *testing.T) {
	err := StartCPU(filepath.Join(t.TempDir(), "no-such-dir", "cpu.out"))
	if err == nil {
		StopCPU()
		t.Fatal("expected an error for an unwritable path")
	}
}
