package services

import "time"

type RefreshResult struct {
	RunID         string
	StartedAt     uint64
	Roots         []string
	Shake         ShakeStats
	Walk          WalkStats
	Records       int
	ShakeDuration time.Duration
	WalkDuration  time.Duration
	Duration      time.Duration
}
