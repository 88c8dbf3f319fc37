package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tasks/internal/model"
	"github.com/idilsaglam/tasks/internal/store"
	"github.com/idilsaglam/tasks/internal/ui"
)

// listItem adapts a task to bubbles/list.Item
type listItem struct {
	task model.Task
}

func (i listItem) FilterValue() string { return i.task.Title + " " + i.task.Category }

type mode int

const (
	browsing mode = iota
	adding
	editing
)

// feed keeps the latest snapshot published by the store until the model
// picks it up.
type feed struct {
	mu   sync.Mutex
	snap *store.Snapshot
}

func (f *feed) push(s store.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = &s
}

func (f *feed) take() (store.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return store.Snapshot{}, false
	}
	s := *f.snap
	f.snap = nil
	return s, true
}

// Model is the interactive task list. Every action goes straight to the
// store, so changes are persisted as they happen. The list is rebuilt from
// the snapshots the store publishes.
type Model struct {
	st     *store.Store
	feed   *feed
	cancel func()
	list   list.Model
	ti   textinput.Model // shared text input (add & edit)

	mode     mode
	editID   int
	inputErr string
	err      error // last store error, shown under the list

	width, height int
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	t := ui.Current()

	box := t.Muted.Render(ui.Box(false))
	text := ui.Truncate(it.task.Title, 80)
	if it.task.Completed {
		box = t.Success.Render(ui.Box(true))
		text = t.Done.Render(text)
	}
	line := fmt.Sprintf("%s %s %s", t.Muted.Render(fmt.Sprintf("#%-3d", it.task.ID)), box, text)
	if it.task.Category != "" {
		line += "  " + t.Category.Render(it.task.Category)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

var (
	addKey    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleKey = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	filterKey = key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter"))
	clearKey  = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done"))
	quitKey   = key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit"))
)

// New builds the model from the store's current state.
func New(st *store.Store) Model {
	l := list.New(nil, itemDelegate{}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")

	extra := func() []key.Binding {
		return []key.Binding{addKey, editKey, toggleKey, deleteKey, filterKey, clearKey}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	f := &feed{}
	m := Model{st: st, feed: f, cancel: st.Subscribe(f.push), list: l, ti: ti, width: 80, height: 24}
	m.apply(st.Snapshot())
	return m
}

// Run starts the full-screen UI and blocks until the user quits.
func Run(st *store.Store) error {
	m := New(st)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Close stops listening to the store.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = size.Width, size.Height
		m.resize()
		return m, nil
	}

	if m.mode != browsing {
		return m.updateInput(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok || m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	// esc clears an applied search before it quits
	if km.Type == tea.KeyEsc && m.list.FilterState() == list.FilterApplied {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(km, quitKey):
		return m, tea.Quit
	case key.Matches(km, toggleKey):
		if t, ok := m.selected(); ok {
			m.err = m.st.ToggleTask(t.ID)
		}
		cmd := m.sync()
		return m, cmd
	case key.Matches(km, deleteKey):
		if t, ok := m.selected(); ok {
			m.err = m.st.DeleteTask(t.ID)
		}
		cmd := m.sync()
		return m, cmd
	case key.Matches(km, filterKey):
		m.st.SetFilter(m.st.Filter().Next())
		cmd := m.sync()
		return m, cmd
	case key.Matches(km, clearKey):
		m.err = m.st.ClearCompleted()
		cmd := m.sync()
		return m, cmd
	case key.Matches(km, addKey):
		m.mode = adding
		m.inputErr = ""
		m.ti.SetValue("")
		m.ti.Placeholder = "category: new task title..."
		m.resize()
		cmd := m.ti.Focus()
		return m, cmd
	case key.Matches(km, editKey):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = editing
		m.editID = t.ID
		m.inputErr = ""
		m.ti.SetValue(t.Title)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit task title..."
		m.resize()
		cmd := m.ti.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	synced := m.sync()
	return m, tea.Batch(cmd, synced)
}

// updateInput handles keys while the add/edit box is open.
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			value := strings.TrimSpace(m.ti.Value())
			if value == "" {
				m.inputErr = "Title cannot be empty"
				return m, nil
			}
			if m.mode == adding {
				category, title := ParseEntry(value)
				_, m.err = m.st.AddTask(title, category)
			} else {
				m.err = m.st.EditTask(m.editID, value)
			}
			m.closeInput()
			cmd := m.sync()
		return m, cmd
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	content := m.list.View()
	if m.mode != browsing {
		title := "Add new task"
		if m.mode == editing {
			title = fmt.Sprintf("Edit task #%d", m.editID)
		}
		if m.inputErr != "" {
			title += " - " + ui.Current().Error.Render(m.inputErr)
		}
		content += "\n" + ui.Frame(title+"\n"+m.ti.View())
	}
	if m.err != nil {
		content += "\n" + ui.Current().Error.Render(ui.Current().SymFail+" "+m.err.Error())
	}
	return ui.Frame(content)
}

// ParseEntry splits "category: title" input. Without a single-word prefix
// followed by a colon the whole value is the title.
func ParseEntry(s string) (category, title string) {
	s = strings.TrimSpace(s)
	i := strings.Index(s, ":")
	if i <= 0 {
		return "", s
	}
	prefix, rest := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	if prefix == "" || rest == "" || strings.ContainsAny(prefix, " \t") {
		return "", s
	}
	return prefix, rest
}

func (m *Model) closeInput() {
	m.mode = browsing
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m *Model) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

// sync applies the latest snapshot the store published, if any.
func (m *Model) sync() tea.Cmd {
	snap, ok := m.feed.take()
	if !ok {
		return nil
	}
	return m.apply(snap)
}

// apply rebuilds the list and header from snap. The returned command
// re-runs an active search over the new items.
func (m *Model) apply(snap store.Snapshot) tea.Cmd {
	idx := m.list.Index()
	items := make([]list.Item, 0, len(snap.Filtered))
	for _, t := range snap.Filtered {
		items = append(items, listItem{task: t})
	}
	cmd := m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	done := 0
	for _, t := range snap.Tasks {
		if t.Completed {
			done++
		}
	}
	t := ui.Current()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s",
		t.Title.Render("Tasks"),
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), len(snap.Tasks)-done,
		t.Accent.Render("Total"), len(snap.Tasks),
		t.Muted.Render("["+snap.Filter.String()+"]"),
	)
	return cmd
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != browsing {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
}
