// Package sources locates annotated source files.
package sources

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the source suffixes scanned in a directory.
var DefaultExtensions = []string{".java", ".j", ".smali"}

// Find returns the annotation files under path. A file is returned as is; a
// directory is walked and every file with one of exts is returned, sorted.
func Find(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(p))) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}
	slices.Sort(files)
	return files, nil
}
