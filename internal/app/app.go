package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"treetally/internal/config"
	"treetally/internal/logger"
	"treetally/internal/services"
	"treetally/internal/state"
	"treetally/internal/ui"
)

func NewRefresher(fs afero.Fs, cfg config.Config, roots []string) (*services.CacheRefresher, error) {
	refresher, err := services.NewCacheRefresher(cfg.RefresherConfig(fs, roots))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return refresher, nil
}

// Scan runs one refresh and persists the result.
func Scan(ctx context.Context, fs afero.Fs, cfg config.Config, roots []string) (services.RefreshResult, error) {
	refresher, err := NewRefresher(fs, cfg, roots)
	if err != nil {
		return services.RefreshResult{}, err
	}
	return refresher.Refresh(ctx)
}

type BrowseOptions struct {
	ConfigFile     string
	RefreshOnStart bool
	SavePrefs      bool
}

// Browse runs the terminal browser until the user quits. Sort order and
// theme are written back to the config file on exit when SavePrefs is set.
func Browse(fs afero.Fs, cfg config.Config, options BrowseOptions) error {
	refresher, err := NewRefresher(fs, cfg, nil)
	if err != nil {
		return err
	}

	initialState := state.NewState(cfg)
	status := ""
	if err := initialState.Load(refresher, ""); err != nil {
		status = fmt.Sprintf("List warning: %v", err)
	}
	model := ui.NewModel(initialState, refresher).WithStatus(status)
	if options.RefreshOnStart || refresher.Storage().Len() == 0 {
		model = model.WithRefreshOnStart()
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if !options.SavePrefs {
		return nil
	}
	if provider, ok := finalModel.(ui.PreferencesProvider); ok {
		prefs := provider.Preferences()
		cfg.SortMode = prefs.SortMode
		cfg.Theme = prefs.Theme
		if err := config.SaveConfig(fs, options.ConfigFile, cfg); err != nil {
			logger.Get().Warn().Err(err).Msg("saving preferences")
		}
	}
	return nil
}
