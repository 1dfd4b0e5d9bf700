package services

import (
	"sort"

	"github.com/spf13/afero"

	"treetally/internal/domain"
)

const DefaultShakeBatch = 200

type ShakeStats struct {
	Checked     int
	Modified    int
	Disappeared int
	Unreadable  int
	Evicted     int
}

// TreeShake evicts cache entries that no longer match the disk so the next
// walk only recomputes what changed. Only the batch shortest keys seed the
// worklist (0 checks every key); stale entries outside the batch survive
// until a later refresh reaches them. Unreadable entries are always evicted
// together with their ancestors so every refresh tries them again.
func TreeShake(fs afero.Fs, store domain.AggregateStore, batch int) (ShakeStats, error) {
	stats := ShakeStats{}
	before := len(store)
	stats.Unreadable = evictUnreadable(store)

	keys := make([]string, 0, len(store))
	for key := range store {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	if batch > 0 && len(keys) > batch {
		keys = keys[:batch]
	}

	worklist := append([]string{}, keys...)
	for len(worklist) > 0 {
		path := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		cached, ok := store[path]
		if !ok {
			continue
		}
		stats.Checked++

		info, err := lstat(fs, path)
		if err != nil {
			if !isNotExist(err) {
				return stats, err
			}
			removed := evictSubtree(store, path)
			evictAncestors(store, path)
			stats.Disappeared += removed
			continue
		}

		if unixSeconds(info.ModTime()) == cached.LastModified {
			continue
		}
		delete(store, path)
		evictAncestors(store, path)
		stats.Modified++
		worklist = append(worklist, directChildren(store, path)...)
	}

	stats.Evicted = before - len(store)
	return stats, nil
}

func evictUnreadable(store domain.AggregateStore) int {
	denied := []string{}
	for key, record := range store {
		if !record.IsAllowed {
			denied = append(denied, key)
		}
	}
	for _, key := range denied {
		delete(store, key)
		evictAncestors(store, key)
	}
	return len(denied)
}

func evictSubtree(store domain.AggregateStore, root string) int {
	removed := 0
	for key := range store {
		if isWithin(root, key) {
			delete(store, key)
			removed++
		}
	}
	return removed
}

// evictAncestors drops the aggregates above an evicted path; their other
// children stay cached and are reused when the walk lists the ancestor again.
func evictAncestors(store domain.AggregateStore, path string) {
	for parent := parentPath(path); parent != ""; parent = parentPath(parent) {
		delete(store, parent)
	}
}

func directChildren(store domain.AggregateStore, path string) []string {
	children := []string{}
	for key := range store {
		if parentPath(key) == path {
			children = append(children, key)
		}
	}
	sort.Strings(children)
	return children
}
