package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"treetally/internal/domain"
)

var baseTime = time.Unix(1_700_000_000, 0)

func stamp() uint64 {
	return uint64(baseTime.Unix())
}

// newTree builds an in-memory filesystem from relative file paths and sizes
// and pins every modification time to baseTime.
func newTree(t *testing.T, root string, files map[string]int) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(root, 0o755))
	for rel, size := range files {
		writeFile(t, fs, filepath.Join(root, rel), size)
	}
	pinTimes(t, fs, root, baseTime)
	return fs
}

func writeFile(t *testing.T, fs afero.Fs, path string, size int) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, make([]byte, size), 0o644))
}

func pinTimes(t *testing.T, fs afero.Fs, root string, at time.Time) {
	t.Helper()
	require.NoError(t, afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return fs.Chtimes(path, at, at)
	}))
}

func touch(t *testing.T, fs afero.Fs, at time.Time, paths ...string) {
	t.Helper()
	for _, path := range paths {
		require.NoError(t, fs.Chtimes(path, at, at))
	}
}

// deniedFs refuses to open the listed directories.
type deniedFs struct {
	afero.Fs
	denied map[string]bool
}

func (fs deniedFs) Open(name string) (afero.File, error) {
	if fs.denied[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return fs.Fs.Open(name)
}

var errDeviceIO = errors.New("input/output error")

// faultyFs fails stat calls on the listed paths with an I/O error.
type faultyFs struct {
	afero.Fs
	broken map[string]bool
}

func (fs faultyFs) Stat(name string) (os.FileInfo, error) {
	if fs.broken[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "lstat", Path: name, Err: errDeviceIO}
	}
	return fs.Fs.Stat(name)
}

func (fs faultyFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	info, err := fs.Stat(name)
	return info, false, err
}

func walkers(fs afero.Fs, policy Policy) map[string]Walker {
	return map[string]Walker{
		"sequential": NewSequentialWalker(fs, policy),
		"concurrent": NewConcurrentWalker(fs, policy, 4),
	}
}

func record(size, scripts uint64) domain.NodeRecord {
	return domain.NodeRecord{Size: size, LastModified: stamp(), ScriptCount: scripts, IsAllowed: true}
}
