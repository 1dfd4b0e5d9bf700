package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"treetally/internal/domain"
	"treetally/internal/logger"
	"treetally/internal/services"
	"treetally/internal/state"
)

type Backend interface {
	services.Refresher
	services.ChildrenProvider
}

type Model struct {
	state          *state.State
	backend        Backend
	status         services.StatusProvider
	keys           KeyMap
	showHelp       bool
	message        string
	refreshing     bool
	refreshOnStart bool
	cancel         context.CancelFunc
	lastResult     *services.RefreshResult
	width          int
	height         int
	viewTop        int
}

type PreferencesProvider interface {
	Preferences() state.Preferences
}

func NewModel(appState *state.State, backend Backend) Model {
	return Model{
		state:   appState,
		backend: backend,
		status:  statusProvider(backend),
		keys:    DefaultKeyMap(),
		message: "Ready - press r to refresh",
		width:   100,
		height:  30,
	}
}

func (model Model) WithStatus(message string) Model {
	if message != "" {
		model.message = message
	}
	return model
}

func (model Model) WithRefreshOnStart() Model {
	model.refreshOnStart = true
	return model
}

func (model Model) Preferences() state.Preferences {
	return model.state.Prefs
}

func (model Model) Init() tea.Cmd {
	if !model.refreshOnStart {
		return nil
	}
	return func() tea.Msg {
		return startRefreshMsg{}
	}
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(typed)
	case tea.WindowSizeMsg:
		model.width = typed.Width
		model.height = typed.Height
		model.ensureCursorVisible()
		return model, nil
	case startRefreshMsg:
		return model.beginRefresh()
	case refreshResultMsg:
		return model.finishRefresh(typed), nil
	default:
		return model, nil
	}
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, model.keys.Quit):
		model = model.cancelRefresh("")
		return model, tea.Quit
	case key.Matches(msg, model.keys.Help):
		model.showHelp = !model.showHelp
		return model, nil
	case key.Matches(msg, model.keys.Up):
		if model.state.MoveCursor(-1) {
			model.ensureCursorVisible()
		}
		return model, nil
	case key.Matches(msg, model.keys.Down):
		if model.state.MoveCursor(1) {
			model.ensureCursorVisible()
		}
		return model, nil
	case key.Matches(msg, model.keys.PageUp):
		model.state.MoveCursor(-minInt(model.state.Cursor, maxInt(model.listHeight(), 1)))
		model.ensureCursorVisible()
		return model, nil
	case key.Matches(msg, model.keys.PageDown):
		remaining := len(model.state.Entries) - 1 - model.state.Cursor
		model.state.MoveCursor(minInt(remaining, maxInt(model.listHeight(), 1)))
		model.ensureCursorVisible()
		return model, nil
	case key.Matches(msg, model.keys.Enter):
		entry := model.state.CurrentEntry()
		if entry == nil || !entry.IsDir {
			return model, nil
		}
		if _, err := model.state.Enter(model.backend); err != nil {
			model.message = fmt.Sprintf("List error: %v", err)
			return model, nil
		}
		model.viewTop = 0
		model.message = describe(*entry)
		return model, nil
	case key.Matches(msg, model.keys.Back):
		left, err := model.state.Leave(model.backend)
		if err != nil {
			model.message = fmt.Sprintf("List error: %v", err)
			return model, nil
		}
		if left {
			model.ensureCursorVisible()
		}
		return model, nil
	case key.Matches(msg, model.keys.Sort):
		mode := model.state.ToggleSortMode()
		model.message = fmt.Sprintf("Sorted by %s", mode)
		model.ensureCursorVisible()
		return model, nil
	case key.Matches(msg, model.keys.Refresh):
		return model.beginRefresh()
	case key.Matches(msg, model.keys.Cancel):
		if model.refreshing {
			model = model.cancelRefresh("Cancelling refresh...")
		}
		return model, nil
	default:
		return model, nil
	}
}

func (model Model) beginRefresh() (Model, tea.Cmd) {
	if model.updating() {
		model.message = "Warning: refresh already running, showing previous data"
		return model, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	model.cancel = cancel
	model.refreshing = true
	model.message = "Refreshing..."
	return model, model.refreshCmd(ctx)
}

func (model Model) refreshCmd(ctx context.Context) tea.Cmd {
	backend := model.backend
	return func() tea.Msg {
		result, err := backend.Refresh(ctx)
		return refreshResultMsg{result: result, err: err}
	}
}

func (model Model) finishRefresh(msg refreshResultMsg) Model {
	if model.cancel != nil {
		model.cancel()
		model.cancel = nil
	}
	model.refreshing = false
	switch {
	case errors.Is(msg.err, services.ErrRefreshInProgress):
		model.message = "Warning: refresh already running, showing previous data"
		return model
	case errors.Is(msg.err, context.Canceled):
		model.message = "Refresh cancelled, previous data retained"
		return model
	case msg.err != nil:
		model.message = fmt.Sprintf("Error: refresh failed, previous data retained (%v)", msg.err)
		return model
	}

	result := msg.result
	model.lastResult = &result
	if err := model.state.Reload(model.backend); err != nil {
		logger.Get().Warn().Err(err).Str("path", model.state.Current).Msg("reload after refresh")
		model.message = fmt.Sprintf("Refresh complete, listing error: %v", err)
		return model
	}
	model.ensureCursorVisible()
	model.message = fmt.Sprintf("Refresh complete: %d records in %s", result.Records, result.Duration.Round(time.Millisecond))
	return model
}

func (model Model) cancelRefresh(message string) Model {
	if model.cancel != nil {
		model.cancel()
		model.cancel = nil
	}
	if message != "" {
		model.message = message
	}
	return model
}

func (model Model) updating() bool {
	if model.refreshing {
		return true
	}
	return model.status != nil && model.status.Updating()
}

func statusProvider(backend Backend) services.StatusProvider {
	provider, _ := backend.(services.StatusProvider)
	return provider
}

func describe(entry domain.Child) string {
	switch {
	case entry.Unreadable():
		return fmt.Sprintf("%s could not be read", entry.Path)
	case !entry.Cached:
		return fmt.Sprintf("%s not measured yet - press r", entry.Path)
	default:
		return entry.Path
	}
}

func (model *Model) ensureCursorVisible() {
	total := len(model.state.Entries)
	if total == 0 {
		model.viewTop = 0
		return
	}
	listHeight := model.listHeight()
	if listHeight <= 0 {
		return
	}
	cursor := model.state.Cursor
	if cursor < model.viewTop {
		model.viewTop = cursor
	}
	if cursor >= model.viewTop+listHeight {
		model.viewTop = cursor - listHeight + 1
	}
	maxTop := maxInt(total-listHeight, 0)
	if model.viewTop > maxTop {
		model.viewTop = maxTop
	}
}

func (model *Model) listHeight() int {
	return model.height - 6
}
