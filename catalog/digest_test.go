package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestDigestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := bytes.Repeat([]byte("abc123"), 50_000) // spans multiple chunks
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := DigestFile(path)
	if err != nil {
		t.Fatalf("DigestFile failed: %v", err)
	}
	if got != want {
		t.Errorf("digest = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("digest length = %d, want 64", len(got))
	}

	// Stable across repeated calls.
	again, err := DigestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if again != got {
		t.Error("digest changed between calls")
	}

	// Identical for a byte-identical copy.
	copyPath := filepath.Join(dir, "copy.bin")
	if err := os.WriteFile(copyPath, content, 0644); err != nil {
		t.Fatal(err)
	}
	copied, err := DigestFile(copyPath)
	if err != nil {
		t.Fatal(err)
	}
	if copied != got {
		t.Error("byte-identical copy produced a different digest")
	}
}

func TestDigestFile_Missing(t *testing.T) {
	if _, err := DigestFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
