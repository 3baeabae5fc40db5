// Package tui is the terminal front end: a board list with the task detail
// dialog drawn over it.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/s1natex/taskboard-GO/internal/editor"
	"github.com/s1natex/taskboard-GO/internal/tasks"
)

// Store is what the board needs from the task API.
type Store interface {
	editor.Store
	List(ctx context.Context, boardID string) ([]tasks.Task, error)
}

type tasksLoadedMsg struct {
	tasks []tasks.Task
	err   error
}

type resultMsg struct {
	res editor.Result
	// modal is the dialog the operation was started from
	modal *modal
}

type focus int

const (
	focusTitle focus = iota
	focusContent
)

// modal is the open task dialog. Each field has at most one write in
// flight; edits made meanwhile go out when its reply arrives.
type modal struct {
	taskID    int64
	title     textinput.Model
	content   textarea.Model
	focus     focus
	onContent func(context.Context, string) editor.Result

	titleBusy, contentBusy bool
	sentTitle, sentContent string
}

type Model struct {
	boardID string
	store   Store
	ed      *editor.Editor
	now     func() time.Time
	logger  *slog.Logger

	list   list.Model
	modal  *modal
	status string
	width  int
	height int
}

type Option func(*Model)

// WithClock sets the clock used for rendering (the timer label and relative dates).
func WithClock(now func() time.Time) Option { return func(m *Model) { m.now = now } }

func WithLogger(l *slog.Logger) Option { return func(m *Model) { m.logger = l } }

func New(boardID string, store Store, opts ...Option) *Model {
	m := &Model{
		boardID: boardID,
		store:   store,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ed = editor.New(boardID, store, editor.WithClock(m.now), editor.WithLogger(m.logger))

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "board " + boardID
	l.SetShowStatusBar(false)
	l.Styles.Title = l.Styles.Title.Background(colorAccent)
	m.list = l
	return m
}

// Run starts the full-screen program and blocks until it exits.
func Run(boardID string, store Store, opts ...Option) error {
	_, err := tea.NewProgram(New(boardID, store, opts...), tea.WithAltScreen()).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.loadTasks()
}

func (m *Model) loadTasks() tea.Cmd {
	store, boardID := m.store, m.boardID
	return func() tea.Msg {
		ts, err := store.List(context.Background(), boardID)
		return tasksLoadedMsg{tasks: ts, err: err}
	}
}

// Tasks returns the tasks currently shown in the board list.
func (m *Model) Tasks() []tasks.Task {
	items := m.list.Items()
	out := make([]tasks.Task, 0, len(items))
	for _, it := range items {
		out = append(out, it.(taskItem).task)
	}
	return out
}

func (m *Model) Editing() bool { return m.modal != nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-2, msg.Height-3)
		if m.modal != nil {
			m.sizeModal()
		}
		return m, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("load failed: " + msg.err.Error())
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.tasks))
		for _, t := range msg.tasks {
			items = append(items, taskItem{task: t, now: m.now()})
		}
		return m, m.list.SetItems(items)

	case resultMsg:
		return m, m.applyResult(msg)

	case tea.KeyMsg:
		if m.modal != nil {
			return m.updateModal(msg)
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "r":
				return m, m.loadTasks()
			case "enter":
				m.openSelected()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) openSelected() {
	it, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return
	}
	t := it.task
	m.ed.Open(&t)

	ti := textinput.New()
	ti.Placeholder = editor.PlaceholderTitle
	ti.CharLimit = tasks.MaxTitleLen
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.SetValue(t.Title)
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = editor.PlaceholderContent
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Cursor.SetMode(cursor.CursorStatic)
	ta.SetValue(t.Content)
	ta.Blur()

	m.modal = &modal{
		taskID:      t.ID,
		title:       ti,
		content:     ta,
		focus:       focusTitle,
		onContent:   m.ed.ContentHandler(),
		sentTitle:   t.Title,
		sentContent: t.Content,
	}
	m.status = ""
	m.sizeModal()
}

func (m *Model) sizeModal() {
	w := m.width / 2
	if w < 40 {
		w = 40
	}
	h := m.height * 8 / 10
	if h < 12 {
		h = 12
	}
	m.modal.title.Width = w - 8
	m.modal.content.SetWidth(w - 8)
	m.modal.content.SetHeight(h - 10)
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	switch msg.String() {
	case "esc":
		m.closeModal()
		return m, nil
	case "ctrl+c":
		m.closeModal()
		return m, tea.Quit
	case "ctrl+t":
		return m, m.run(m.ed.ToggleTimer)
	case "ctrl+d":
		return m, m.run(m.ed.Delete)
	case "tab", "shift+tab":
		if md.focus == focusTitle {
			md.focus = focusContent
			md.title.Blur()
			return m, md.content.Focus()
		}
		md.focus = focusTitle
		md.content.Blur()
		return m, md.title.Focus()
	}

	// every change goes to the store
	var cmd tea.Cmd
	switch md.focus {
	case focusTitle:
		before := md.title.Value()
		md.title, cmd = md.title.Update(msg)
		if md.title.Value() != before {
			return m, tea.Batch(cmd, m.syncTitle())
		}
	case focusContent:
		before := md.content.Value()
		md.content, cmd = md.content.Update(msg)
		if md.content.Value() != before {
			return m, tea.Batch(cmd, m.syncContent())
		}
	}
	return m, cmd
}

// syncTitle sends the title field unless a rename is already in flight or
// the field is blank. A blank title stays local (the placeholder shows) until
// something is typed.
func (m *Model) syncTitle() tea.Cmd {
	md := m.modal
	v := md.title.Value()
	if md.titleBusy || v == md.sentTitle || strings.TrimSpace(v) == "" {
		return nil
	}
	md.titleBusy, md.sentTitle = true, v
	return m.run(func(ctx context.Context) editor.Result {
		return m.ed.Rename(ctx, v)
	})
}

func (m *Model) syncContent() tea.Cmd {
	md := m.modal
	v := md.content.Value()
	if md.contentBusy || v == md.sentContent {
		return nil
	}
	md.contentBusy, md.sentContent = true, v
	onContent := md.onContent
	return m.run(func(ctx context.Context) editor.Result {
		return onContent(ctx, v)
	})
}

func (m *Model) run(op func(context.Context) editor.Result) tea.Cmd {
	md := m.modal
	return func() tea.Msg {
		return resultMsg{res: op(context.Background()), modal: md}
	}
}

func (m *Model) closeModal() {
	if t, ok := m.ed.Close(); ok {
		m.replaceTask(t)
	}
	m.modal = nil
}

func (m *Model) applyResult(msg resultMsg) tea.Cmd {
	res := msg.res
	md := m.modal
	if md != nil && msg.modal == md {
		switch res.Op {
		case editor.OpRename:
			md.titleBusy = false
		case editor.OpContent:
			md.contentBusy = false
		}
	}
	if res.Skipped {
		return nil
	}
	if res.Err != nil {
		m.status = errorStyle.Render(fmt.Sprintf("%s failed: %v", res.Op, res.Err))
		m.logger.Debug("tui_result_error", slog.String("op", string(res.Op)), slog.String("error", res.Err.Error()))
	} else {
		m.status = ""
	}

	if res.Op == editor.OpDelete {
		if res.Err == nil {
			m.removeTask(res.Prev.ID)
			if m.modal != nil && m.modal.taskID == res.Prev.ID {
				m.modal = nil
			}
			m.status = helpStyle.Render("deleted #" + fmt.Sprint(res.Prev.ID))
		}
		return nil
	}
	if res.Task.ID == 0 {
		return nil
	}
	m.replaceTask(res.Task)

	md = m.modal
	if md == nil || md.taskID != res.Task.ID {
		return nil
	}
	// put a rolled-back value back into the field, unless the user has
	// typed past it already
	if res.RolledBack {
		if res.Patch.Title != nil && md.title.Value() == *res.Patch.Title {
			md.title.SetValue(res.Task.Title)
			md.sentTitle = res.Task.Title
		}
		if res.Patch.Content != nil && md.content.Value() == *res.Patch.Content {
			md.content.SetValue(res.Task.Content)
			md.sentContent = res.Task.Content
		}
	}
	return tea.Batch(m.syncTitle(), m.syncContent())
}

func (m *Model) replaceTask(t tasks.Task) {
	for i, it := range m.list.Items() {
		if it.(taskItem).task.ID == t.ID {
			m.list.SetItem(i, taskItem{task: t, now: m.now()})
			return
		}
	}
}

func (m *Model) removeTask(id int64) {
	for i, it := range m.list.Items() {
		if it.(taskItem).task.ID == id {
			m.list.RemoveItem(i)
			return
		}
	}
}

func (m *Model) View() string {
	if m.modal == nil {
		return m.list.View() + "\n" + m.statusLine("enter open · r reload · q quit")
	}

	md := m.modal
	// the timer label only advances when something triggers a render
	timer := m.ed.TimerLabel(m.now())
	created := ""
	if t, ok := m.ed.Task(); ok {
		created = m.ed.CreatedLabel() + " (" + humanizeCreated(t, m.now()) + ")"
	}
	meta := lipgloss.JoinHorizontal(lipgloss.Top,
		metaStyle.Render(created),
		"   ",
		timerStyle.Render("[ "+timer+" ]"),
	)
	width := md.content.Width()
	body := lipgloss.JoinVertical(lipgloss.Left,
		helpStyle.Render(strings.Repeat(" ", max(0, width-12))+"ctrl+d delete"),
		titleStyle.Render(md.title.View()),
		meta,
		dividerStyle.Render(strings.Repeat("─", width)),
		md.content.View(),
		m.statusLine("tab switch field · ctrl+t timer · esc close"),
	)
	box := modalStyle.Render(body)
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) statusLine(help string) string {
	if m.status != "" {
		return m.status
	}
	return helpStyle.Render(help)
}

func humanizeCreated(t tasks.Task, now time.Time) string {
	return taskItem{task: t, now: now}.createdAgo()
}
