package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tasks/internal/kv/memkv"
	"github.com/idilsaglam/tasks/internal/model"
	"github.com/idilsaglam/tasks/internal/store"
	"github.com/idilsaglam/tasks/internal/ui"
)

func setup(t *testing.T, titles ...string) (*store.Store, Model) {
	t.Helper()
	ui.SetTheme("mono")
	t.Cleanup(func() { ui.SetTheme("classic") })

	st := store.New(memkv.New())
	for _, title := range titles {
		_, err := st.AddTask(title, "")
		require.NoError(t, err)
	}
	return st, New(st)
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	ctrlU = tea.KeyMsg{Type: tea.KeyCtrlU}
)

func TestToggleSelected(t *testing.T) {
	st, m := setup(t, "a", "b")

	m, _ = press(t, m, space)
	tasks := st.Tasks()
	require.True(t, tasks[0].Completed)
	require.False(t, tasks[1].Completed)
	require.Nil(t, m.err)

	press(t, m, space)
	require.False(t, st.Tasks()[0].Completed)
}

func TestFilterCycles(t *testing.T) {
	st, m := setup(t, "a", "b")
	m, _ = press(t, m, space)

	m, _ = press(t, m, runes("f"))
	require.Equal(t, model.FilterActive, st.Filter())
	require.Len(t, m.list.Items(), 1)

	m, _ = press(t, m, runes("f"))
	require.Equal(t, model.FilterCompleted, st.Filter())
	require.Len(t, m.list.Items(), 1)

	m, _ = press(t, m, runes("f"))
	require.Equal(t, model.FilterAll, st.Filter())
	require.Len(t, m.list.Items(), 2)
}

func TestAddWithCategory(t *testing.T) {
	st, m := setup(t)

	m, _ = press(t, m, runes("a"))
	require.Equal(t, adding, m.mode)

	m, _ = press(t, m, runes("work: milk"), enter)
	require.Equal(t, browsing, m.mode)
	require.Equal(t, []model.Task{{ID: 1, Title: "milk", Category: "work"}}, st.Tasks())
	require.Len(t, m.list.Items(), 1)
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	st, m := setup(t)

	m, _ = press(t, m, runes("a"), runes("   "), enter)
	require.Equal(t, adding, m.mode)
	require.NotEmpty(t, m.inputErr)
	require.Empty(t, st.Tasks())

	m, _ = press(t, m, esc)
	require.Equal(t, browsing, m.mode)
	require.Empty(t, st.Tasks())
}

func TestEditSelected(t *testing.T) {
	st, m := setup(t, "old title")

	m, _ = press(t, m, runes("e"))
	require.Equal(t, editing, m.mode)
	require.Equal(t, 1, m.editID)
	require.Equal(t, "old title", m.ti.Value())

	press(t, m, ctrlU, runes("new title"), enter)
	require.Equal(t, "new title", st.Tasks()[0].Title)
}

func TestDeleteAndClear(t *testing.T) {
	st, m := setup(t, "a", "b", "c")

	m, _ = press(t, m, runes("d"))
	require.Equal(t, []string{"b", "c"}, titles(st.Tasks()))

	m, _ = press(t, m, space, runes("c"))
	require.Equal(t, []string{"c"}, titles(st.Tasks()))
	require.Len(t, m.list.Items(), 1)
}

func TestEmptyListKeysAreHarmless(t *testing.T) {
	st, m := setup(t)
	m, _ = press(t, m, space, runes("d"), runes("e"))
	require.Equal(t, browsing, m.mode)
	require.Empty(t, st.Tasks())
}

// deliver runs cmd and hands its message back to the model, as the program
// loop would.
func deliver(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	next, _ := m.Update(cmd())
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestActionsKeepSearchResults(t *testing.T) {
	st, m := setup(t, "apple", "banana", "apricot")
	m.list.SetFilterText("ap")
	require.Equal(t, list.FilterApplied, m.list.FilterState())
	require.Len(t, m.list.VisibleItems(), 2)

	m, cmd := press(t, m, space)
	m = deliver(t, m, cmd)
	require.Len(t, m.list.VisibleItems(), 2)
	require.Equal(t, 1, st.Stats().Done)
	require.False(t, st.Tasks()[1].Completed, "banana is not in the search results")

	m, cmd = press(t, m, runes("d"))
	m = deliver(t, m, cmd)
	require.Len(t, m.list.VisibleItems(), 1)
	require.Len(t, st.Tasks(), 2)
}

func TestEscClearsSearchBeforeQuitting(t *testing.T) {
	_, m := setup(t, "apple", "banana")
	m.list.SetFilterText("ap")
	require.Len(t, m.list.VisibleItems(), 1)

	m, _ = press(t, m, esc)
	require.Equal(t, list.Unfiltered, m.list.FilterState())
	require.Len(t, m.list.VisibleItems(), 2)

	_, cmd := press(t, m, esc)
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestOutsideChangesShowOnNextKey(t *testing.T) {
	st, m := setup(t, "a")
	_, err := st.AddTask("from elsewhere", "home")
	require.NoError(t, err)
	require.Len(t, m.list.Items(), 1)

	m, _ = press(t, m, runes("j"))
	require.Len(t, m.list.Items(), 2)
	require.Contains(t, m.list.Title, "Total 2")
}

func TestCloseStopsUpdates(t *testing.T) {
	st, m := setup(t)
	m.Close()
	_, err := st.AddTask("late", "")
	require.NoError(t, err)

	m, _ = press(t, m, runes("j"))
	require.Empty(t, m.list.Items())
}

func TestQuit(t *testing.T) {
	_, m := setup(t)
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	_, m := setup(t, "a")
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Nil(t, cmd)
	m = next.(Model)
	require.Equal(t, 100, m.width)
	require.Equal(t, 96, m.list.Width())
	require.Equal(t, 36, m.list.Height())
}

func TestView(t *testing.T) {
	_, m := setup(t, "write tests")
	out := m.View()
	require.Contains(t, out, "Tasks")
	require.Contains(t, out, "write tests")

	m, _ = press(t, m, runes("a"))
	require.Contains(t, m.View(), "Add new task")
}

func TestParseEntry(t *testing.T) {
	cases := []struct {
		in, category, title string
	}{
		{"work: milk", "work", "milk"},
		{"  home:fix sink ", "home", "fix sink"},
		{"no category", "", "no category"},
		{"two words: title", "", "two words: title"},
		{":leading", "", ":leading"},
		{"trailing:", "", "trailing:"},
		{"a: b: c", "a", "b: c"},
	}
	for _, tc := range cases {
		category, title := ParseEntry(tc.in)
		require.Equal(t, tc.category, category, tc.in)
		require.Equal(t, tc.title, title, tc.in)
	}
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
