package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLockDryRun(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "api:\n  port: 6000\n")

	report, err := Lock(tmpDir, true)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if report.Written {
		t.Fatal("report.Written = true, want false in dry-run")
	}
	if report.Files["config.yaml"] == "" {
		t.Fatal("config.yaml should have a computed hash")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ChecksumFile)); !os.IsNotExist(err) {
		t.Fatal(".checksums should not be written in dry-run mode")
	}
}

func TestLockWritesChecksums(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, "api:\n  port: 6000\n")

	report, err := Lock(tmpDir, false)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if !report.Written {
		t.Fatal("report.Written = false, want true")
	}

	manifest, err := LoadChecksums(tmpDir)
	if err != nil {
		t.Fatalf("LoadChecksums() failed: %v", err)
	}
	if err := VerifyFileHash(path, manifest.Hashes["config.yaml"]); err != nil {
		t.Fatalf("VerifyFileHash() failed: %v", err)
	}
}

func TestLoadRejectsTamperedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, "api:\n  port: 6000\n")

	if _, err := Lock(tmpDir, false); err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() of locked config failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("api:\n  port: 6001\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail after config.yaml was modified")
	}
	if !strings.Contains(err.Error(), "hash mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("printmesh"))
	b := HashBytes([]byte("printmesh"))
	if a != b || len(a) != 64 {
		t.Fatalf("HashBytes() = %q / %q, want equal 64-char hex", a, b)
	}
	if HashBytes([]byte("printmesh!")) == a {
		t.Fatal("different input produced same hash")
	}
}
