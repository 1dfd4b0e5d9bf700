package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treetally/internal/domain"
)

func TestWalkEndToEnd(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10, "b/c.exe": 5})

	want := domain.AggregateStore{
		"/r":         record(15, 1),
		"/r/a":       record(10, 0),
		"/r/b":       record(5, 1),
		"/r/b/c.exe": record(5, 1),
	}
	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, stats, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			assert.Equal(t, want, store)
			assert.Equal(t, int64(2), stats.Listed)
			assert.Equal(t, int64(2), stats.Measured)
		})
	}
}

func TestWalkEmptyDirectoryIsRecorded(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 3})
	require.NoError(t, fs.MkdirAll("/r/empty", 0o755))
	touch(t, fs, baseTime, "/r/empty", "/r")

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			assert.Equal(t, record(0, 0), store["/r/empty"])
			assert.Equal(t, record(3, 0), store["/r"])
		})
	}
}

func TestWalkIgnoresReservedPaths(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{
		"keep.txt":                           4,
		"$RECYCLE.BIN/junk.exe":              50,
		"System Volume Information/tracking": 60,
		"nested/Config.Msi/rollback.exe":     70,
	})

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			policy := DefaultPolicy()
			for key := range store {
				for current := key; current != ""; current = parentPath(current) {
					assert.False(t, policy.IsIgnored(current), key)
				}
			}
			assert.Equal(t, record(4, 0), store["/r"])
			assert.Equal(t, record(0, 0), store["/r/nested"])
		})
	}
}

func TestWalkUnreadableDirectory(t *testing.T) {
	base := newTree(t, "/r", map[string]int{"a": 10, "locked/secret.exe": 100})
	fs := deniedFs{Fs: base, denied: map[string]bool{"/r/locked": true}}

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, stats, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.NodeRecord{LastModified: stamp()}, store["/r/locked"])
			assert.NotContains(t, store, "/r/locked/secret.exe")
			assert.Equal(t, record(10, 0), store["/r"])
			assert.Equal(t, int64(1), stats.Unreadable)
		})
	}
}

func TestWalkOpaqueLeaf(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{
		"main.go":            12,
		".git/HEAD":          4,
		".git/objects/ab/cd": 30,
		".env":               2,
	})
	policy := NewPolicy(PolicyOptions{OpaqueDotfiles: true, ScriptExtensions: DefaultScriptExtensions})

	for name, walker := range walkers(fs, policy) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			assert.Equal(t, record(34, 0), store["/r/.git"])
			assert.Equal(t, record(2, 0), store["/r/.env"])
			assert.NotContains(t, store, "/r/.git/HEAD")
			assert.NotContains(t, store, "/r/.git/objects")
			assert.Equal(t, record(48, 0), store["/r"])
		})
	}
}

func TestWalkStatFailureIsFatal(t *testing.T) {
	base := newTree(t, "/r", map[string]int{"main.go": 12, ".git/HEAD": 4})
	fs := faultyFs{Fs: base, broken: map[string]bool{"/r/.git": true}}
	policy := NewPolicy(PolicyOptions{OpaqueDotfiles: true, ScriptExtensions: DefaultScriptExtensions})

	for name, walker := range walkers(fs, policy) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, errDeviceIO)
			assert.Contains(t, err.Error(), "/r/.git")
			assert.Nil(t, store)
		})
	}
}

func TestWalkReusesCacheIdempotently(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10, "b/c.exe": 5, "b/d/e.ps1": 3, "f/g/h": 1})

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			first, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)

			cache := first.Clone()
			shake, err := TreeShake(fs, cache, 0)
			require.NoError(t, err)
			assert.Equal(t, 0, shake.Evicted)

			second, stats, err := walker.Walk(context.Background(), []string{"/r"}, cache)
			require.NoError(t, err)
			assert.Equal(t, first, second)
			assert.Equal(t, int64(0), stats.Listed)
		})
	}
}

func TestWalkRecomputesStaleEntries(t *testing.T) {
	for _, name := range []string{"sequential", "concurrent"} {
		t.Run(name, func(t *testing.T) {
			fs := newTree(t, "/r", map[string]int{"a": 10, "b/c.exe": 5, "b/d/e": 3, "z/y": 8})
			walker := walkers(fs, DefaultPolicy())[name]
			first, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)

			later := baseTime.Add(time.Hour)
			writeFile(t, fs, "/r/b/new.bat", 7)
			writeFile(t, fs, "/r/a", 20)
			touch(t, fs, later, "/r/b", "/r/b/new.bat", "/r/a", "/r")

			cache := first.Clone()
			_, err = TreeShake(fs, cache, 0)
			require.NoError(t, err)
			assert.NotContains(t, cache, "/r/b")
			assert.NotContains(t, cache, "/r/a")

			second, stats, err := walker.Walk(context.Background(), []string{"/r"}, cache)
			require.NoError(t, err)

			latest := uint64(later.Unix())
			assert.Equal(t, domain.NodeRecord{Size: 43, LastModified: latest, ScriptCount: 2, IsAllowed: true}, second["/r"])
			assert.Equal(t, domain.NodeRecord{Size: 15, LastModified: latest, ScriptCount: 2, IsAllowed: true}, second["/r/b"])
			assert.Equal(t, domain.NodeRecord{Size: 20, LastModified: latest, IsAllowed: true}, second["/r/a"])
			assert.Equal(t, first["/r/b/d"], second["/r/b/d"])
			assert.Equal(t, first["/r/z"], second["/r/z"])
			assert.Equal(t, int64(2), stats.Listed, "only /r and /r/b are listed again")
		})
	}
}

func TestWalkAfterDeletion(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10, "b/c.exe": 5, "b/d/e": 3})
	walker := NewSequentialWalker(fs, DefaultPolicy())
	first, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
	require.NoError(t, err)

	require.NoError(t, fs.RemoveAll("/r/b"))
	touch(t, fs, baseTime.Add(time.Minute), "/r")

	cache := first.Clone()
	_, err = TreeShake(fs, cache, 0)
	require.NoError(t, err)
	second, _, err := walker.Walk(context.Background(), []string{"/r"}, cache)
	require.NoError(t, err)

	for key := range second {
		assert.False(t, isWithin("/r/b", key), key)
	}
	assert.Equal(t, uint64(10), second["/r"].Size)
	assert.Equal(t, uint64(0), second["/r"].ScriptCount)
}

func TestWalkAncestorConsistency(t *testing.T) {
	files := map[string]int{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				name := fmt.Sprintf("d%d/e%d/f%d", i, j, k)
				if k%2 == 0 {
					name += ".exe"
				}
				files[name] = i*100 + j*10 + k + 1
			}
		}
	}
	fs := newTree(t, "/r", files)

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r"}, nil)
			require.NoError(t, err)
			for key, child := range store {
				parent, ok := store[parentPath(key)]
				if !ok {
					assert.Equal(t, "/r", key)
					continue
				}
				assert.GreaterOrEqual(t, parent.Size, child.Size, key)
				assert.GreaterOrEqual(t, parent.ScriptCount, child.ScriptCount, key)
			}
			for key := range store {
				assert.True(t, key == "/r" || strings.HasPrefix(key, "/r/"), key)
			}
			assert.Equal(t, uint64(18), store["/r"].ScriptCount)
		})
	}
}

func TestWalkersAgree(t *testing.T) {
	files := map[string]int{}
	for i := 0; i < 40; i++ {
		dir := filepath.Join(fmt.Sprintf("a%d", i%5), fmt.Sprintf("b%d", i%7), fmt.Sprintf("c%d", i%3))
		files[filepath.Join(dir, fmt.Sprintf("file%d.dll", i))] = i + 1
		files[filepath.Join(dir, fmt.Sprintf("note%d.txt", i))] = 2*i + 1
	}
	fs := newTree(t, "/r", files)

	sequential, _, err := NewSequentialWalker(fs, DefaultPolicy()).Walk(context.Background(), []string{"/r"}, nil)
	require.NoError(t, err)
	for _, workers := range []int{1, 2, 8} {
		concurrent, _, err := NewConcurrentWalker(fs, DefaultPolicy(), workers).Walk(context.Background(), []string{"/r"}, nil)
		require.NoError(t, err)
		assert.Equal(t, sequential, concurrent, "workers=%d", workers)
	}
}

func TestWalkMultipleRoots(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10})
	writeFile(t, fs, "/s/b.exe", 5)
	pinTimes(t, fs, "/s", baseTime)

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			store, _, err := walker.Walk(context.Background(), []string{"/r", "/s", "/r/", "/missing"}, nil)
			require.NoError(t, err)
			assert.Equal(t, record(10, 0), store["/r"])
			assert.Equal(t, record(5, 1), store["/s"])
			assert.NotContains(t, store, "/")
			assert.NotContains(t, store, "/missing")
		})
	}
}

func TestWalkNestedRootsCountedOnce(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10, "b/c.exe": 5})

	want := domain.AggregateStore{
		"/r":         record(15, 1),
		"/r/a":       record(10, 0),
		"/r/b":       record(5, 1),
		"/r/b/c.exe": record(5, 1),
	}
	orders := map[string][]string{
		"outer first": {"/r", "/r/b"},
		"inner first": {"/r/b", "/r"},
	}
	for name, walker := range walkers(fs, DefaultPolicy()) {
		for order, roots := range orders {
			t.Run(name+"/"+order, func(t *testing.T) {
				store, stats, err := walker.Walk(context.Background(), roots, nil)
				require.NoError(t, err)
				assert.Equal(t, want, store)
				assert.Equal(t, int64(2), stats.Measured)
			})
		}
	}
	assert.Equal(t, []string{"/s", "/r"}, normalizeRoots([]string{"/r/b", "/s", "/r", "/r/b/c.exe"}))
}

func TestWalkCancelled(t *testing.T) {
	fs := newTree(t, "/r", map[string]int{"a": 10, "b/c": 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, walker := range walkers(fs, DefaultPolicy()) {
		t.Run(name, func(t *testing.T) {
			_, _, err := walker.Walk(ctx, []string{"/r"}, nil)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
