package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// lstat avoids following symlinks where the filesystem allows it, matching
// the entries returned by a directory listing.
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}

func isWithin(root, path string) bool {
	if root == path {
		return true
	}
	rootWithSep := root
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, rootWithSep)
}

func cleanPath(path string) string {
	if path == "" {
		return path
	}
	clean := filepath.Clean(path)
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean
	}
	return abs
}

// parentPath returns "" for a filesystem root.
func parentPath(path string) string {
	parent := filepath.Dir(path)
	if parent == path {
		return ""
	}
	return parent
}

func unixSeconds(value time.Time) uint64 {
	seconds := value.Unix()
	if seconds < 0 {
		return 0
	}
	return uint64(seconds)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
