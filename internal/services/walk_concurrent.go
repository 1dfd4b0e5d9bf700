package services

import (
	"context"
	"runtime"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"treetally/internal/domain"
)

const (
	minWorkers = 4
	maxWorkers = 8
)

func DefaultWorkerCount() int {
	return minInt(maxInt(minWorkers, runtime.NumCPU()), maxWorkers)
}

type ConcurrentWalker struct {
	FS      afero.Fs
	Policy  Policy
	Workers int
}

func NewConcurrentWalker(fs afero.Fs, policy Policy, workers int) *ConcurrentWalker {
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}
	return &ConcurrentWalker{FS: fs, Policy: policy, Workers: workers}
}

// dirQueue is the shared LIFO of directories waiting for a listing. The walk
// is over once every worker is idle at the same time with nothing queued.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	paths   []string
	idle    int
	workers int
	err     error
	done    bool
}

func newDirQueue(workers int, seed []string) *dirQueue {
	queue := &dirQueue{paths: append([]string{}, seed...), workers: workers}
	queue.cond = sync.NewCond(&queue.mu)
	return queue
}

// pop blocks until a path is available. ok is false when the walk has
// finished or failed.
func (queue *dirQueue) pop() (string, bool) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	for len(queue.paths) == 0 && queue.err == nil && !queue.done {
		queue.idle++
		if queue.idle == queue.workers {
			queue.done = true
			queue.cond.Broadcast()
			return "", false
		}
		queue.cond.Wait()
		queue.idle--
	}
	if queue.err != nil || queue.done {
		return "", false
	}
	path := queue.paths[len(queue.paths)-1]
	queue.paths = queue.paths[:len(queue.paths)-1]
	queue.cond.Broadcast()
	return path, true
}

func (queue *dirQueue) push(paths []string) {
	if len(paths) == 0 {
		return
	}
	queue.mu.Lock()
	queue.paths = append(queue.paths, paths...)
	queue.mu.Unlock()
	queue.cond.Broadcast()
}

func (queue *dirQueue) fail(err error) {
	queue.mu.Lock()
	if queue.err == nil {
		queue.err = err
	}
	queue.mu.Unlock()
	queue.cond.Broadcast()
}

func (queue *dirQueue) failure() error {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return queue.err
}

// Walk has the same contract as SequentialWalker.Walk, spreading directory
// listings across a fixed pool of workers.
func (walker *ConcurrentWalker) Walk(ctx context.Context, roots []string, cache domain.AggregateStore) (domain.AggregateStore, WalkStats, error) {
	roots = normalizeRoots(roots)
	walk := newWalkState(walker.FS, walker.Policy, roots, cache)
	seed, err := walk.start(roots)
	if err != nil {
		return nil, walk.counters.snapshot(), err
	}

	workers := walker.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}
	queue := newDirQueue(workers, seed)
	stop := context.AfterFunc(ctx, func() { queue.fail(ctx.Err()) })
	defer stop()

	var group errgroup.Group
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for {
				dir, ok := queue.pop()
				if !ok {
					return nil
				}
				if err := ctx.Err(); err != nil {
					queue.fail(err)
					return nil
				}
				pending, err := walk.expand(dir)
				if err != nil {
					queue.fail(err)
					return err
				}
				queue.push(pending)
			}
		})
	}
	if err := group.Wait(); err != nil {
		return nil, walk.counters.snapshot(), err
	}
	if err := queue.failure(); err != nil {
		return nil, walk.counters.snapshot(), err
	}
	return walk.tree.drain(), walk.counters.snapshot(), nil
}
