package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile renames src to dst, falling back to copy+remove when the rename
// crosses filesystems (EXDEV), which happens when the work dir and the
// download dir live on different mounts.
func MoveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrExist) && !isCrossDevice(err) {
		// Rename failed for a reason a copy will not fix (permissions,
		// missing source). Surface it.
		if _, statErr := os.Stat(src); statErr != nil {
			return fmt.Errorf("move %s: %w", src, statErr)
		}
	}
	if err := CopyFile(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return os.Remove(src)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return strings.Contains(strings.ToLower(linkErr.Err.Error()), "cross-device")
	}
	return false
}

// SanitizeFileName strips characters that are unsafe in file names and
// collapses whitespace. Returns an empty string when nothing safe remains.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			continue
		case r == ' ' || r == '\t':
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteByte(' ')
		default:
			lastSpace = false
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty directory path")
	}
	return os.MkdirAll(dir, 0o755)
}

// FilesWithExt returns files directly under dir whose name carries the given
// extension (case-insensitive, including the dot).
func FilesWithExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}

// FilesWithPrefix returns files directly under dir whose base name starts with
// the given prefix.
func FilesWithPrefix(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}
