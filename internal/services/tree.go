package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"

	"treetally/internal/domain"
)

// aggregateTree is the store being rebuilt by a walk. All methods are safe
// for concurrent use; each accumulate call updates its whole ancestor chain
// under one lock hold.
type aggregateTree struct {
	fs       afero.Fs
	mu       sync.Mutex
	nodes    domain.AggregateStore
	roots    map[string]struct{}
	stampsMu sync.Mutex
	stamps   map[string]uint64
}

func newAggregateTree(fs afero.Fs, roots []string, seed domain.AggregateStore) *aggregateTree {
	rootSet := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		rootSet[root] = struct{}{}
	}
	return &aggregateTree{
		fs:     fs,
		nodes:  seed.Clone(),
		roots:  rootSet,
		stamps: make(map[string]uint64),
	}
}

// chain lists path and its ancestors, ending at the traversal root the path
// belongs to or at the filesystem root.
func (tree *aggregateTree) chain(path string) []string {
	chain := []string{}
	for current := path; current != ""; current = parentPath(current) {
		chain = append(chain, current)
		if _, ok := tree.roots[current]; ok {
			break
		}
	}
	return chain
}

func (tree *aggregateTree) isRoot(path string) bool {
	_, ok := tree.roots[path]
	return ok
}

func (tree *aggregateTree) prime(path string, info os.FileInfo) {
	tree.stampsMu.Lock()
	tree.stamps[path] = unixSeconds(info.ModTime())
	tree.stampsMu.Unlock()
}

func (tree *aggregateTree) modTime(path string) (uint64, error) {
	tree.stampsMu.Lock()
	stamp, ok := tree.stamps[path]
	tree.stampsMu.Unlock()
	if ok {
		return stamp, nil
	}
	info, err := lstat(tree.fs, path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	tree.prime(path, info)
	return unixSeconds(info.ModTime()), nil
}

func (tree *aggregateTree) accumulate(path string, contribution domain.NodeRecord) error {
	return tree.merge(tree.chain(path), contribution)
}

// propagate adds a reused record's contribution to its ancestors only; the
// record itself is already part of the seeded store.
func (tree *aggregateTree) propagate(path string, contribution domain.NodeRecord) error {
	if tree.isRoot(path) {
		return nil
	}
	parent := parentPath(path)
	if parent == "" {
		return nil
	}
	return tree.merge(tree.chain(parent), contribution)
}

func (tree *aggregateTree) merge(chain []string, contribution domain.NodeRecord) error {
	stamps := make([]uint64, len(chain))
	for index, path := range chain {
		stamp, err := tree.modTime(path)
		if err != nil {
			return err
		}
		stamps[index] = stamp
	}

	tree.mu.Lock()
	defer tree.mu.Unlock()
	for index, path := range chain {
		record := tree.nodes[path]
		record.Size += contribution.Size
		record.ScriptCount += contribution.ScriptCount
		record.LastModified = stamps[index]
		record.IsAllowed = true
		tree.nodes[path] = record
	}
	return nil
}

func (tree *aggregateTree) markUnreadable(path string) error {
	stamp, err := tree.modTime(path)
	if err != nil {
		return err
	}
	tree.mu.Lock()
	tree.nodes[path] = domain.NodeRecord{LastModified: stamp}
	tree.mu.Unlock()
	return nil
}

func (tree *aggregateTree) drain() domain.AggregateStore {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	nodes := tree.nodes
	tree.nodes = nil
	return nodes
}

// deepSize measures an opaque leaf: the sum of every file at or beneath
// root. Like directory aggregates it ignores the size of directory inodes.
// Unlistable directories inside the leaf are skipped.
func deepSize(fs afero.Fs, root string) (uint64, error) {
	var total uint64
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info == nil && !isNotExist(err) {
				return err
			}
			return nil
		}
		if !info.IsDir() && info.Size() > 0 {
			total += uint64(info.Size())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", root, err)
	}
	return total, nil
}
