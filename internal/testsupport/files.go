package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with the requested number of bytes of filler,
// standing in for downloaded media in tests. A size <= 0 writes one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	chunk := make([]byte, 32*1024)
	for i := range chunk {
		chunk[i] = byte('a' + i%26)
	}

	for remaining := size; remaining > 0; {
		n := int64(len(chunk))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(chunk[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}
