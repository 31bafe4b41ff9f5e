// Package importer maps bank CSV exports into transactions and runs import
// batches against a repository.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes a CSV file waiting in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// processedDir is the subdirectory of the import directory that receives
// imported files.
const processedDir = "processed"

// Scan returns the CSV files directly inside dir. A missing dir is not an error.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// ReadFiles loads the given paths into import Files named by their base name.
func ReadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		files = append(files, File{Name: filepath.Base(p), Content: data})
	}
	return files, nil
}

// MarkProcessed moves path into the processed/ subdirectory of dir.
func MarkProcessed(dir, path string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	name := filepath.Base(path)
	if err := os.Rename(path, filepath.Join(dstDir, name)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return nil
}
