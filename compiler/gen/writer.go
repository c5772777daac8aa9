package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

// FormatGo formats Go source and fixes its imports. path is used for
// import resolution and error messages only.
func FormatGo(path string, src []byte) ([]byte, error) {
	formatted, err := imports.Process(path, src, nil)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", path, err)
	}
	return formatted, nil
}

// WriteFiles writes files under dir, creating directories as needed, and
// returns the written paths. Existing files are overwritten. The first
// failure stops the write and is returned as a *GenerationError.
func WriteFiles(target, dir string, files []*File) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := writeFile(fullPath, f.Content); err != nil {
			return written, NewGenerationError(target, f.Path, "write artifact", err)
		}
		written = append(written, fullPath)
	}
	return written, nil
}

// writeFile writes through a temporary file in the same directory so a
// failed run never leaves a truncated artifact behind.
func writeFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
