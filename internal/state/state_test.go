package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treetally/internal/config"
	"treetally/internal/domain"
	"treetally/internal/services"
)

func entry(path, name string, dir bool, size, scripts uint64) domain.Child {
	return domain.Child{
		Path:   path,
		Name:   name,
		IsDir:  dir,
		Cached: true,
		Record: domain.NodeRecord{Size: size, ScriptCount: scripts, IsAllowed: true},
	}
}

func fixture() *services.MockRefresher {
	mock := services.NewMockRefresher()
	mock.Listings[""] = []domain.Child{entry("/", "/", true, 100, 3)}
	mock.Listings["/"] = []domain.Child{
		entry("/a", "a", false, 10, 0),
		entry("/bin", "bin", true, 60, 3),
		entry("/home", "home", true, 30, 0),
		{Path: "/root", Name: "root", IsDir: true, Cached: true},
	}
	mock.Listings["/bin"] = []domain.Child{entry("/bin/x.exe", "x.exe", false, 60, 1)}
	return mock
}

func names(appState *State) []string {
	result := []string{}
	for _, entry := range appState.Entries {
		result = append(result, entry.Name)
	}
	return result
}

func TestLoadSortsBySize(t *testing.T) {
	appState := NewState(config.DefaultConfig())
	require.NoError(t, appState.Load(fixture(), "/"))
	assert.Equal(t, []string{"bin", "home", "a", "root"}, names(appState))
}

func TestToggleSortModeKeepsFocus(t *testing.T) {
	appState := NewState(config.DefaultConfig())
	require.NoError(t, appState.Load(fixture(), "/"))
	require.True(t, appState.MoveCursor(1))
	assert.Equal(t, "home", appState.CurrentEntry().Name)

	assert.Equal(t, domain.SortByName, appState.ToggleSortMode())
	assert.Equal(t, []string{"bin", "home", "root", "a"}, names(appState))
	assert.Equal(t, "home", appState.CurrentEntry().Name)

	assert.Equal(t, domain.SortByScript, appState.ToggleSortMode())
	assert.Equal(t, "bin", appState.Entries[0].Name)
	assert.Equal(t, domain.SortBySize, appState.ToggleSortMode())
}

func TestEnterAndLeave(t *testing.T) {
	mock := fixture()
	appState := NewState(config.DefaultConfig())
	require.NoError(t, appState.Load(mock, ""))

	entered, err := appState.Enter(mock)
	require.NoError(t, err)
	require.True(t, entered)
	assert.Equal(t, "/", appState.Current)

	entered, err = appState.Enter(mock)
	require.NoError(t, err)
	require.True(t, entered)
	assert.Equal(t, "/bin", appState.Current)
	assert.Equal(t, 2, appState.Depth())

	entered, err = appState.Enter(mock)
	require.NoError(t, err)
	assert.False(t, entered, "files cannot be entered")

	left, err := appState.Leave(mock)
	require.NoError(t, err)
	require.True(t, left)
	assert.Equal(t, "/", appState.Current)
	assert.Equal(t, "bin", appState.CurrentEntry().Name)

	_, err = appState.Leave(mock)
	require.NoError(t, err)
	left, err = appState.Leave(mock)
	require.NoError(t, err)
	assert.False(t, left)
	assert.Equal(t, "", appState.Current)
}

type failingProvider struct{}

func (failingProvider) Children(string) ([]domain.Child, error) {
	return nil, errors.New("listing failed")
}

func TestFailedLoadKeepsListing(t *testing.T) {
	appState := NewState(config.DefaultConfig())
	require.NoError(t, appState.Load(fixture(), "/"))

	assert.Error(t, appState.Reload(failingProvider{}))
	assert.Equal(t, "/", appState.Current)
	assert.Len(t, appState.Entries, 4)

	entered, err := appState.Enter(failingProvider{})
	assert.Error(t, err)
	assert.False(t, entered)
	assert.Equal(t, 0, appState.Depth())
}

func TestTotals(t *testing.T) {
	appState := NewState(config.DefaultConfig())
	require.NoError(t, appState.Load(fixture(), "/"))
	size, scripts, unreadable := appState.Totals()
	assert.Equal(t, uint64(100), size)
	assert.Equal(t, uint64(3), scripts)
	assert.Equal(t, 1, unreadable)
}
