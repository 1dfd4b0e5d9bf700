package services

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"

	"treetally/internal/domain"
)

// DiscoverRoots checks the candidate filesystem roots of this platform and
// keeps the ones that exist.
func DiscoverRoots(fs afero.Fs) []string {
	return existingRoots(fs, rootCandidates(runtime.GOOS))
}

func rootCandidates(goos string) []string {
	if goos != "windows" {
		return []string{string(filepath.Separator)}
	}
	candidates := make([]string, 0, 24)
	for letter := 'C'; letter <= 'Z'; letter++ {
		candidates = append(candidates, fmt.Sprintf("%c:\\", letter))
	}
	return candidates
}

func existingRoots(fs afero.Fs, candidates []string) []string {
	roots := []string{}
	for _, candidate := range candidates {
		info, err := fs.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		roots = append(roots, candidate)
	}
	return roots
}

// Children lists path for lazy tree expansion, pairing every entry with its
// cached record (zero when not cached). An empty path lists the roots.
func Children(fs afero.Fs, policy Policy, roots []string, store domain.AggregateStore, path string) ([]domain.Child, error) {
	if path == "" {
		if len(roots) == 0 {
			roots = DiscoverRoots(fs)
		}
		children := make([]domain.Child, 0, len(roots))
		for _, root := range normalizeRoots(roots) {
			record, cached := store[root]
			children = append(children, domain.Child{
				Path:   root,
				Name:   root,
				IsDir:  true,
				Cached: cached,
				Record: record,
			})
		}
		return children, nil
	}

	dir := cleanPath(path)
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	children := make([]domain.Child, 0, len(entries))
	for _, info := range entries {
		child := filepath.Join(dir, info.Name())
		if policy.IsIgnored(child) {
			continue
		}
		record, cached := store[child]
		children = append(children, domain.Child{
			Path:   child,
			Name:   info.Name(),
			IsDir:  info.IsDir(),
			Cached: cached,
			Record: record,
		})
	}
	return children, nil
}
