package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"treetally/internal/domain"
	"treetally/internal/logger"
)

var (
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrUpdaterConsumed   = errors.New("updater already consumed")
)

// Storage is the caller-facing cache. Reads never wait on a running
// refresh: the refresh works on its own copy and the result is swapped in
// with Replace.
type Storage struct {
	mu       sync.RWMutex
	nodes    domain.AggregateStore
	updating atomic.Bool
	refresh  sync.Mutex
}

func NewStorage(nodes domain.AggregateStore) *Storage {
	if nodes == nil {
		nodes = domain.AggregateStore{}
	}
	return &Storage{nodes: nodes}
}

func (storage *Storage) Updating() bool {
	return storage.updating.Load()
}

func (storage *Storage) Len() int {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return len(storage.nodes)
}

func (storage *Storage) Record(path string) (domain.NodeRecord, bool) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	record, ok := storage.nodes[path]
	return record, ok
}

func (storage *Storage) Snapshot() domain.AggregateStore {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return storage.nodes.Clone()
}

func (storage *Storage) Children(fs afero.Fs, policy Policy, roots []string, path string) ([]domain.Child, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return Children(fs, policy, roots, storage.nodes, path)
}

// Replace swaps in the store produced by a finished refresh.
func (storage *Storage) Replace(next *Storage) {
	if next == nil {
		return
	}
	next.mu.RLock()
	nodes := next.nodes
	next.mu.RUnlock()

	storage.mu.Lock()
	storage.nodes = nodes
	storage.mu.Unlock()
}

type RefreshOptions struct {
	FS         afero.Fs
	Roots      []string
	Walker     Walker
	ShakeBatch int
	// Clock stamps RefreshResult.StartedAt; time.Now when nil.
	Clock func() time.Time
}

// BeginRefresh detaches a copy of the store into an Updater. Only one
// Updater per Storage may be outstanding; it is released by Commit, by
// Discard, or by a failed Consume.
func (storage *Storage) BeginRefresh(options RefreshOptions) (*Updater, error) {
	if !storage.refresh.TryLock() {
		return nil, ErrRefreshInProgress
	}
	storage.updating.Store(true)
	if options.FS == nil {
		options.FS = afero.NewOsFs()
	}
	if options.Walker == nil {
		options.Walker = NewSequentialWalker(options.FS, DefaultPolicy())
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	return &Updater{
		owner:   storage,
		nodes:   storage.Snapshot(),
		options: options,
	}, nil
}

type Updater struct {
	owner    *Storage
	nodes    domain.AggregateStore
	options  RefreshOptions
	consumed atomic.Bool
	release  sync.Once
}

// Consume runs invalidation and then the walk. On error the owning Storage
// is left exactly as it was and released. On success it stays marked as
// updating until the caller commits or discards the result.
func (updater *Updater) Consume(ctx context.Context) (next *Storage, result RefreshResult, err error) {
	if updater.consumed.Swap(true) {
		return nil, RefreshResult{}, ErrUpdaterConsumed
	}
	defer func() {
		if err != nil {
			updater.Discard()
		}
	}()

	result = RefreshResult{
		RunID:     uuid.NewString(),
		StartedAt: unixSeconds(updater.options.Clock()),
	}
	log := logger.Get().With().Str("run", result.RunID).Logger()
	start := time.Now()

	roots := updater.options.Roots
	if len(roots) == 0 {
		roots = DiscoverRoots(updater.options.FS)
	}
	result.Roots = normalizeRoots(roots)
	log.Info().Strs("roots", result.Roots).Int("cached", len(updater.nodes)).Msg("refresh started")

	nodes := updater.nodes
	updater.nodes = nil
	shake, err := TreeShake(updater.options.FS, nodes, updater.options.ShakeBatch)
	result.Shake = shake
	result.ShakeDuration = time.Since(start)
	if err != nil {
		return nil, result, fmt.Errorf("tree shaking: %w", err)
	}
	log.Info().
		Int("checked", shake.Checked).
		Int("modified", shake.Modified).
		Int("disappeared", shake.Disappeared).
		Int("unreadable", shake.Unreadable).
		Int("evicted", shake.Evicted).
		Dur("took", result.ShakeDuration).
		Msg("tree shaking done")

	walkStart := time.Now()
	walked, walk, err := updater.options.Walker.Walk(ctx, result.Roots, nodes)
	result.Walk = walk
	result.WalkDuration = time.Since(walkStart)
	result.Duration = time.Since(start)
	if err != nil {
		return nil, result, fmt.Errorf("walk: %w", err)
	}
	result.Records = len(walked)
	log.Info().
		Int64("listed", walk.Listed).
		Int64("reused", walk.Reused).
		Int64("measured", walk.Measured).
		Int64("unreadable", walk.Unreadable).
		Int("records", result.Records).
		Dur("took", result.WalkDuration).
		Msg("walk done")
	return NewStorage(walked), result, nil
}

// Commit installs next into the owning Storage and then releases it.
func (updater *Updater) Commit(next *Storage) {
	updater.owner.Replace(next)
	updater.Discard()
}

// Discard releases the owning Storage without producing a result. It is
// safe to call more than once.
func (updater *Updater) Discard() {
	updater.release.Do(func() {
		updater.owner.updating.Store(false)
		updater.owner.refresh.Unlock()
	})
}
