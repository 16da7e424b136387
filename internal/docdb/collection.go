// Reads and writes one kind's file: one encoded token per line.

package docdb

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

const (
	// tempPrefix marks in-flight rewrites; leftovers are ignored on load.
	tempPrefix = ".docdb-tmp-"
	// seqSuffix names the hidden file holding a kind's id high-water mark.
	seqSuffix = ".seq"
)

// loadRows reads and decodes every non-blank line of path, in file order.
//
// A missing file yields no rows and no error.
func loadRows[T any](kind, path string) ([]T, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is built from the store directory and a validated kind name
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &LoadError{Kind: kind, Path: path, Err: err}
	}
	var rows []T
	for i, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var row T
		if err := Decode(line, &row); err != nil {
			return nil, &LoadError{Kind: kind, Path: path, Line: i + 1, Err: err}
		}
		if v := reflect.ValueOf(row); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
			return nil, &LoadError{Kind: kind, Path: path, Line: i + 1, Err: fmt.Errorf("%w: null record", ErrCorruptRecord)}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// saveRows encodes rows and replaces path with the result.
func saveRows[T any](path string, rows []T) error {
	var buf bytes.Buffer
	for _, row := range rows {
		token, err := Encode(row)
		if err != nil {
			return err
		}
		buf.Write(token)
		buf.WriteByte('\n')
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

// loadSeq returns the id stored in path, or 0 when the file is missing.
func loadSeq(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// saveSeq replaces path with id.
func saveSeq(path string, id int64) error {
	return writeFileAtomic(path, strconv.AppendInt(nil, id, 10), 0o644)
}

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(filename), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	committed = true
	return nil
}
