package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"

	"treetally/internal/domain"
	"treetally/internal/logger"
)

type WalkStats struct {
	Listed     int64
	Reused     int64
	Measured   int64
	Unreadable int64
	Vanished   int64
}

type walkCounters struct {
	listed     atomic.Int64
	reused     atomic.Int64
	measured   atomic.Int64
	unreadable atomic.Int64
	vanished   atomic.Int64
}

func (counters *walkCounters) snapshot() WalkStats {
	return WalkStats{
		Listed:     counters.listed.Load(),
		Reused:     counters.reused.Load(),
		Measured:   counters.measured.Load(),
		Unreadable: counters.unreadable.Load(),
		Vanished:   counters.vanished.Load(),
	}
}

// walkState holds what both walkers share for one run. cache is the
// invalidated store from the previous refresh and is only read.
type walkState struct {
	fs       afero.Fs
	policy   Policy
	cache    domain.AggregateStore
	tree     *aggregateTree
	counters walkCounters
}

func newWalkState(fs afero.Fs, policy Policy, roots []string, cache domain.AggregateStore) *walkState {
	if cache == nil {
		cache = domain.AggregateStore{}
	}
	return &walkState{
		fs:     fs,
		policy: policy,
		cache:  cache,
		tree:   newAggregateTree(fs, roots, cache),
	}
}

func (walk *walkState) reusable(path string) (domain.NodeRecord, bool) {
	record, ok := walk.cache[path]
	return record, ok && record.IsAllowed
}

// start returns the roots that need a listing. A root that is a plain file
// is measured directly.
func (walk *walkState) start(roots []string) ([]string, error) {
	pending := make([]string, 0, len(roots))
	for _, root := range roots {
		if walk.policy.IsIgnored(root) {
			continue
		}
		if _, ok := walk.reusable(root); ok {
			walk.counters.reused.Add(1)
			continue
		}
		info, err := lstat(walk.fs, root)
		if err != nil {
			if isNotExist(err) {
				walk.counters.vanished.Add(1)
				logger.Get().Debug().Str("path", root).Msg("root does not exist")
				continue
			}
			return nil, fmt.Errorf("stat root %s: %w", root, err)
		}
		if info.IsDir() && !walk.policy.IsOpaqueLeaf(root) {
			pending = append(pending, root)
			continue
		}
		if err := walk.measure(root, info.IsDir(), uint64(maxInt64(info.Size(), 0))); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// expand lists one directory and returns the subdirectories that still need
// a listing of their own.
func (walk *walkState) expand(dir string) ([]string, error) {
	entries, err := afero.ReadDir(walk.fs, dir)
	if err != nil {
		if isNotExist(err) {
			walk.counters.vanished.Add(1)
			logger.Get().Debug().Str("path", dir).Msg("directory vanished before listing")
			return nil, nil
		}
		walk.counters.unreadable.Add(1)
		logger.Get().Warn().Err(err).Str("path", dir).Msg("directory not listable")
		if err := walk.tree.markUnreadable(dir); err != nil && !isNotExist(err) {
			return nil, err
		}
		return nil, nil
	}
	walk.counters.listed.Add(1)
	if err := walk.tree.accumulate(dir, domain.NodeRecord{}); err != nil {
		return nil, err
	}

	pending := []string{}
	for _, info := range entries {
		path := filepath.Join(dir, info.Name())
		if walk.policy.IsIgnored(path) {
			continue
		}
		if cached, ok := walk.reusable(path); ok {
			walk.counters.reused.Add(1)
			if err := walk.tree.propagate(path, cached.Contribution()); err != nil {
				return nil, err
			}
			continue
		}
		walk.tree.prime(path, info)
		if info.IsDir() && !walk.policy.IsOpaqueLeaf(path) {
			pending = append(pending, path)
			continue
		}
		if err := walk.measure(path, info.IsDir(), uint64(maxInt64(info.Size(), 0))); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

func (walk *walkState) measure(path string, opaque bool, size uint64) error {
	if opaque || walk.policy.IsOpaqueLeaf(path) {
		deep, err := deepSize(walk.fs, path)
		if err != nil {
			if isNotExist(err) {
				walk.counters.vanished.Add(1)
				return nil
			}
			return err
		}
		size = deep
	}
	contribution := domain.NodeRecord{Size: size}
	if walk.policy.IsScript(path) {
		contribution.ScriptCount = 1
	}
	walk.counters.measured.Add(1)
	if err := walk.tree.accumulate(path, contribution); err != nil {
		if isNotExist(err) {
			walk.counters.vanished.Add(1)
			logger.Get().Debug().Str("path", path).Msg("entry vanished during walk")
			return nil
		}
		return err
	}
	return nil
}

type SequentialWalker struct {
	FS     afero.Fs
	Policy Policy
}

func NewSequentialWalker(fs afero.Fs, policy Policy) *SequentialWalker {
	return &SequentialWalker{FS: fs, Policy: policy}
}

// Walk rebuilds the aggregates beneath roots with an explicit stack, reusing
// every valid entry of cache without descending into it.
func (walker *SequentialWalker) Walk(ctx context.Context, roots []string, cache domain.AggregateStore) (domain.AggregateStore, WalkStats, error) {
	roots = normalizeRoots(roots)
	walk := newWalkState(walker.FS, walker.Policy, roots, cache)
	stack, err := walk.start(roots)
	if err != nil {
		return nil, walk.counters.snapshot(), err
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, walk.counters.snapshot(), err
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pending, err := walk.expand(dir)
		if err != nil {
			return nil, walk.counters.snapshot(), err
		}
		stack = append(stack, pending...)
	}
	return walk.tree.drain(), walk.counters.snapshot(), nil
}

func normalizeRoots(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	result := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		clean := cleanPath(root)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		result = append(result, clean)
	}
	// A root inside another root is already covered by the outer walk.
	kept := make([]string, 0, len(result))
	for _, root := range result {
		if !nestedRoot(root, result) {
			kept = append(kept, root)
		}
	}
	return kept
}

func nestedRoot(root string, roots []string) bool {
	for _, other := range roots {
		if other != root && isWithin(other, root) {
			return true
		}
	}
	return false
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
