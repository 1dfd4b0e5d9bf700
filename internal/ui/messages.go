package ui

import "treetally/internal/services"

type startRefreshMsg struct{}

type refreshResultMsg struct {
	result services.RefreshResult
	err    error
}
