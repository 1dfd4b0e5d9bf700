package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"treetally/internal/domain"
)

// MockRefresher stands in for CacheRefresher in the browser when no
// filesystem should be touched.
type MockRefresher struct {
	Delay    time.Duration
	Err      error
	Busy     bool
	Listings map[string][]domain.Child
}

func NewMockRefresher() *MockRefresher {
	return &MockRefresher{Delay: 350 * time.Millisecond, Listings: map[string][]domain.Child{}}
}

func (refresher *MockRefresher) Refresh(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	select {
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	case <-time.After(refresher.Delay):
	}
	if refresher.Err != nil {
		return RefreshResult{}, refresher.Err
	}
	return RefreshResult{RunID: "mock", Duration: time.Since(start)}, nil
}

func (refresher *MockRefresher) Children(path string) ([]domain.Child, error) {
	listing, ok := refresher.Listings[path]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", path, os.ErrNotExist)
	}
	return append([]domain.Child{}, listing...), nil
}

func (refresher *MockRefresher) Updating() bool {
	return refresher.Busy
}
