package sdb

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IngestOptions configures PackDirectory.
type IngestOptions struct {
	UseCompression bool
	// ExcludeDirs names directories pruned from descent entirely.
	ExcludeDirs []string
	// ExcludeExts names file extensions (with leading dot) skipped.
	ExcludeExts []string
}

// DefaultIngestOptions excludes {.git, __pycache__, .DS_Store} directories
// and {.bak, .tmp, .log} files, with compression enabled.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		UseCompression: true,
		ExcludeDirs:    []string{".git", "__pycache__", ".DS_Store"},
		ExcludeExts:    []string{".bak", ".tmp", ".log"},
	}
}

// PackDirectory walks inputDir, feeding every non-excluded entry that is not
// a directory into a new container at outputPath. Entries are not checked
// for being regular files.
func PackDirectory(inputDir string, opts IngestOptions, outputSdbPath string) error {
	c, err := Open(outputSdbPath, Options{UseCompression: opts.UseCompression})
	if err != nil {
		return err
	}

	walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputDir && isExcludedDir(d.Name(), opts.ExcludeDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		if isExcludedExt(d.Name(), opts.ExcludeExts) {
			return nil
		}

		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return fmt.Errorf("%w: computing relative path for %s: %v", ErrIO, path, err)
		}
		logicalPath := filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
		}
		return c.WriteDocument(logicalPath, data)
	})
	if walkErr != nil {
		c.Close()
		return walkErr
	}
	return c.Close()
}

func isExcludedDir(name string, excluded []string) bool {
	for _, e := range excluded {
		if name == e {
			return true
		}
	}
	return false
}

func isExcludedExt(name string, excluded []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range excluded {
		if ext == e {
			return true
		}
	}
	return false
}
