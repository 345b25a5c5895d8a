package sdb

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixtureFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// scenario S5: a .git/ subdirectory and a note.bak file are excluded from
// the packed container.
func TestScenarioS5DirectoryExclusion(t *testing.T) {
	src := t.TempDir()
	writeFixtureFile(t, filepath.Join(src, "keep.txt"), "kept")
	writeFixtureFile(t, filepath.Join(src, "note.bak"), "excluded by extension")
	writeFixtureFile(t, filepath.Join(src, ".git", "HEAD"), "excluded by directory")
	writeFixtureFile(t, filepath.Join(src, "sub", "also_kept.txt"), "also kept")

	out := filepath.Join(t.TempDir(), "packed.sdb")
	if err := PackDirectory(src, DefaultIngestOptions(), out); err != nil {
		t.Fatalf("PackDirectory: %v", err)
	}

	rc, err := OpenRead(out, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()

	if len(rc.docs) != 2 {
		t.Fatalf("packed %d documents, want 2 (keep.txt, sub/also_kept.txt)", len(rc.docs))
	}
	if _, found, _ := rc.Resolve("keep.txt"); !found {
		t.Fatalf("keep.txt missing from packed container")
	}
	if _, found, _ := rc.Resolve("sub/also_kept.txt"); !found {
		t.Fatalf("sub/also_kept.txt missing from packed container")
	}
	if _, found, _ := rc.Resolve("note.bak"); found {
		t.Fatalf("note.bak should have been excluded by extension")
	}
	if _, found, _ := rc.Resolve(".git/HEAD"); found {
		t.Fatalf(".git/HEAD should have been excluded by directory name")
	}
}

func TestPackDirectoryNormalizesPathSeparators(t *testing.T) {
	src := t.TempDir()
	writeFixtureFile(t, filepath.Join(src, "a", "b", "c.txt"), "nested")

	out := filepath.Join(t.TempDir(), "packed.sdb")
	if err := PackDirectory(src, DefaultIngestOptions(), out); err != nil {
		t.Fatalf("PackDirectory: %v", err)
	}

	rc, err := OpenRead(out, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()

	if _, found, _ := rc.Resolve("a/b/c.txt"); !found {
		t.Fatalf("expected forward-slash logical path \"a/b/c.txt\" to resolve")
	}
}

func TestIsExcludedDirAndExt(t *testing.T) {
	excludedDirs := []string{".git", "__pycache__", ".DS_Store"}
	for _, name := range excludedDirs {
		if !isExcludedDir(name, excludedDirs) {
			t.Fatalf("isExcludedDir(%s) = false, want true", name)
		}
	}
	if isExcludedDir("src", excludedDirs) {
		t.Fatalf("isExcludedDir(src) = true, want false")
	}

	excludedExts := []string{".bak", ".tmp", ".log"}
	if !isExcludedExt("build.BAK", excludedExts) {
		t.Fatalf("isExcludedExt should be case-insensitive")
	}
	if isExcludedExt("build.txt", excludedExts) {
		t.Fatalf("isExcludedExt(build.txt) = true, want false")
	}
}
