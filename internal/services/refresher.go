package services

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"treetally/internal/domain"
	"treetally/internal/logger"
)

type CacheRefresher struct {
	fs        afero.Fs
	policy    Policy
	storage   *Storage
	cachePath string
	options   RefreshOptions
}

type RefresherConfig struct {
	FS         afero.Fs
	Policy     Policy
	CachePath  string
	Roots      []string
	Workers    int
	Concurrent bool
	ShakeBatch int
}

// NewCacheRefresher loads the persisted cache (a missing file is an empty
// cache) and prepares the walker the config asks for.
func NewCacheRefresher(cfg RefresherConfig) (*CacheRefresher, error) {
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	nodes := domain.AggregateStore{}
	if cfg.CachePath != "" {
		loaded, err := LoadFile(fs, cfg.CachePath)
		if err != nil {
			return nil, err
		}
		nodes = loaded
	}
	logger.Get().Info().Str("cache", cfg.CachePath).Int("records", len(nodes)).Msg("cache loaded")

	var walker Walker = NewSequentialWalker(fs, cfg.Policy)
	if cfg.Concurrent {
		walker = NewConcurrentWalker(fs, cfg.Policy, cfg.Workers)
	}
	return &CacheRefresher{
		fs:        fs,
		policy:    cfg.Policy,
		storage:   NewStorage(nodes),
		cachePath: cfg.CachePath,
		options: RefreshOptions{
			FS:         fs,
			Roots:      cfg.Roots,
			Walker:     walker,
			ShakeBatch: cfg.ShakeBatch,
		},
	}, nil
}

func (refresher *CacheRefresher) Storage() *Storage {
	return refresher.storage
}

func (refresher *CacheRefresher) Updating() bool {
	return refresher.storage.Updating()
}

func (refresher *CacheRefresher) Children(path string) ([]domain.Child, error) {
	return refresher.storage.Children(refresher.fs, refresher.policy, refresher.options.Roots, path)
}

// Refresh runs one invalidate-then-walk cycle and persists the result. A
// failed refresh keeps the previous data in memory and on disk.
func (refresher *CacheRefresher) Refresh(ctx context.Context) (RefreshResult, error) {
	updater, err := refresher.storage.BeginRefresh(refresher.options)
	if err != nil {
		return RefreshResult{}, err
	}
	next, result, err := updater.Consume(ctx)
	if err != nil {
		logger.Get().Error().Err(err).Str("run", result.RunID).Msg("refresh failed, previous data retained")
		return result, err
	}
	updater.Commit(next)

	if refresher.cachePath != "" {
		if err := DumpFile(refresher.fs, refresher.cachePath, next.Snapshot()); err != nil {
			return result, fmt.Errorf("persist cache: %w", err)
		}
	}
	return result, nil
}
