package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestGetArtifactReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.json")
	if err := os.WriteFile(path, []byte(`[{"id": "a"}]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := NewIOArtifactLoader()
	data, err := l.GetArtifact(context.Background(), path)
	if err != nil {
		t.Fatalf("GetArtifact returned error: %v", err)
	}
	if string(data) != `[{"id": "a"}]` {
		t.Errorf("GetArtifact = %q", data)
	}
}

func TestGetArtifactCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.json")
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := NewIOArtifactLoader()
	if _, err := l.GetArtifact(context.Background(), path); err != nil {
		t.Fatalf("GetArtifact returned error: %v", err)
	}

	// Rewrite the file; the cached bytes must win.
	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	data, err := l.GetArtifact(context.Background(), path)
	if err != nil {
		t.Fatalf("GetArtifact returned error: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("cache miss: got %q", data)
	}
}

func TestGetArtifactMissingFile(t *testing.T) {
	l := NewIOArtifactLoader()
	if _, err := l.GetArtifact(context.Background(), "/does/not/exist"); err == nil {
		t.Error("missing file accepted")
	}
}
