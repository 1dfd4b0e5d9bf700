package services

import (
	"context"

	"treetally/internal/domain"
)

type Walker interface {
	Walk(ctx context.Context, roots []string, cache domain.AggregateStore) (domain.AggregateStore, WalkStats, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (RefreshResult, error)
}

type ChildrenProvider interface {
	Children(path string) ([]domain.Child, error)
}

type StatusProvider interface {
	Updating() bool
}
