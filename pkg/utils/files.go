package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// DeleteFile removes a file
func DeleteFile(path string) error {
	return os.Remove(path)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// TempFilePath returns a path in dir named prefix_<nanos><ext>. ext is normalized
// to lower case with a leading dot, and an empty ext is kept empty.
func TempFilePath(dir, prefix, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", prefix, time.Now().UnixNano(), ext))
}
