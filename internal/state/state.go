package state

import (
	"sort"
	"strings"

	"treetally/internal/config"
	"treetally/internal/domain"
	"treetally/internal/services"
)

type Preferences struct {
	SortMode domain.SortMode
	Theme    string
}

// State is the browser's view of one directory at a time. An empty Current
// means the filesystem roots are listed.
type State struct {
	Current string
	Cursor  int
	Entries []domain.Child
	Prefs   Preferences
	trail   []crumb
}

type crumb struct {
	path   string
	cursor int
}

func NewState(cfg config.Config) *State {
	return &State{
		Prefs: Preferences{
			SortMode: domain.ParseSortMode(string(cfg.SortMode), domain.SortBySize),
			Theme:    cfg.Theme,
		},
	}
}

func (appState *State) Load(provider services.ChildrenProvider, path string) error {
	entries, err := provider.Children(path)
	if err != nil {
		return err
	}
	appState.Current = path
	appState.Cursor = 0
	appState.Entries = entries
	appState.sortEntries()
	return nil
}

// Reload lists the current directory again, keeping the cursor on the same
// entry when it still exists.
func (appState *State) Reload(provider services.ChildrenProvider) error {
	focused := ""
	if entry := appState.CurrentEntry(); entry != nil {
		focused = entry.Path
	}
	entries, err := provider.Children(appState.Current)
	if err != nil {
		return err
	}
	appState.Entries = entries
	appState.sortEntries()
	appState.focus(focused)
	return nil
}

func (appState *State) CurrentEntry() *domain.Child {
	if appState.Cursor < 0 || appState.Cursor >= len(appState.Entries) {
		return nil
	}
	return &appState.Entries[appState.Cursor]
}

func (appState *State) MoveCursor(delta int) bool {
	next := appState.Cursor + delta
	if next < 0 || next >= len(appState.Entries) {
		return false
	}
	appState.Cursor = next
	return true
}

func (appState *State) Enter(provider services.ChildrenProvider) (bool, error) {
	entry := appState.CurrentEntry()
	if entry == nil || !entry.IsDir {
		return false, nil
	}
	from := crumb{path: appState.Current, cursor: appState.Cursor}
	if err := appState.Load(provider, entry.Path); err != nil {
		return false, err
	}
	appState.trail = append(appState.trail, from)
	return true, nil
}

func (appState *State) Leave(provider services.ChildrenProvider) (bool, error) {
	if len(appState.trail) == 0 {
		return false, nil
	}
	back := appState.trail[len(appState.trail)-1]
	left := appState.Current
	if err := appState.Load(provider, back.path); err != nil {
		return false, err
	}
	appState.trail = appState.trail[:len(appState.trail)-1]
	if !appState.focus(left) {
		appState.Cursor = back.cursor
		appState.clampCursor()
	}
	return true, nil
}

func (appState *State) Depth() int {
	return len(appState.trail)
}

func (appState *State) ToggleSortMode() domain.SortMode {
	switch appState.Prefs.SortMode {
	case domain.SortBySize:
		appState.Prefs.SortMode = domain.SortByName
	case domain.SortByName:
		appState.Prefs.SortMode = domain.SortByScript
	default:
		appState.Prefs.SortMode = domain.SortBySize
	}
	focused := ""
	if entry := appState.CurrentEntry(); entry != nil {
		focused = entry.Path
	}
	appState.sortEntries()
	appState.focus(focused)
	return appState.Prefs.SortMode
}

// Totals sums the cached records of the listed entries.
func (appState *State) Totals() (size uint64, scripts uint64, unreadable int) {
	for _, entry := range appState.Entries {
		size += entry.Record.Size
		scripts += entry.Record.ScriptCount
		if entry.Unreadable() {
			unreadable++
		}
	}
	return size, scripts, unreadable
}

func (appState *State) focus(path string) bool {
	if path != "" {
		for index, entry := range appState.Entries {
			if entry.Path == path {
				appState.Cursor = index
				return true
			}
		}
	}
	appState.clampCursor()
	return false
}

func (appState *State) clampCursor() {
	if appState.Cursor >= len(appState.Entries) {
		appState.Cursor = len(appState.Entries) - 1
	}
	if appState.Cursor < 0 {
		appState.Cursor = 0
	}
}

func (appState *State) sortEntries() {
	entries := appState.Entries
	if len(entries) < 2 {
		return
	}
	less := func(i, j int) bool {
		left, right := entries[i], entries[j]
		switch appState.Prefs.SortMode {
		case domain.SortByName:
			if left.IsDir != right.IsDir {
				return left.IsDir
			}
			return strings.ToLower(left.Name) < strings.ToLower(right.Name)
		case domain.SortByScript:
			if left.Record.ScriptCount != right.Record.ScriptCount {
				return left.Record.ScriptCount > right.Record.ScriptCount
			}
		}
		if left.Record.Size != right.Record.Size {
			return left.Record.Size > right.Record.Size
		}
		return left.Name < right.Name
	}
	sort.SliceStable(entries, less)
}
