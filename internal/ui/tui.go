// Package ui provides the interactive terminal interface: a login screen,
// the task list with live search/filter/sort, and the task form. It is
// the terminal stand-in for the original browser views.
//
// Navigation between screens is driven by session events: the session
// store signals login and logout, and the model switches screens when the
// signal arrives rather than as a side effect of the operation itself.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Shahid138/task-manager/internal/form"
	"github.com/Shahid138/task-manager/internal/session"
	"github.com/Shahid138/task-manager/internal/store"
	"github.com/Shahid138/task-manager/internal/task"
	"github.com/Shahid138/task-manager/internal/view"
)

type screen int

const (
	screenLogin screen = iota
	screenList
	screenForm
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	statsStyle    = lipgloss.NewStyle().Faint(true).MarginBottom(1)

	statusStyles = map[task.Status]lipgloss.Style{
		task.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		task.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		task.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	}
)

// statusFilters cycles All plus the three statuses.
var statusFilters = []string{
	view.StatusAll,
	string(task.StatusPending),
	string(task.StatusInProgress),
	string(task.StatusCompleted),
}

// Run starts the TUI over the given session and task stores.
func Run(ctx context.Context, sessions *session.Store, tasks *store.Store) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	m := newModel(ctx, sessions, tasks)

	// Session signals drive screen navigation. The subscription outlives
	// nothing: the program owns the whole process lifetime here.
	sessions.Subscribe(func(e session.Event, _ *task.User) {
		select {
		case m.events <- e:
		default:
		}
	})

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, _ := f.Stat()
	return (info.Mode() & os.ModeCharDevice) != 0
}

type model struct {
	ctx      context.Context
	sessions *session.Store
	tasks    *store.Store
	events   chan session.Event

	screen  screen
	width   int
	loading bool

	// login screen
	loginInputs []textinput.Model
	loginFocus  int
	loginErr    string

	// list screen
	all           []task.Task
	rows          []task.Task
	cursor        int
	search        textinput.Model
	searching     bool
	filterIndex   int
	sortBy        view.SortKey
	sortOrder     view.Order
	listErr       string
	pendingDelete int // task id awaiting delete confirmation, 0 if none

	// form screen
	formInputs []textinput.Model
	formFocus  int
	formStatus int // index into task.Statuses()
	formMode   form.Mode
	formTaskID int
	formErrs   []form.FieldError
}

func newModel(ctx context.Context, sessions *session.Store, tasks *store.Store) *model {
	username := textinput.New()
	username.Placeholder = "Username"
	username.Focus()
	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword

	search := textinput.New()
	search.Placeholder = "Search title or description"
	search.CharLimit = 100

	scr := screenLogin
	if sessions.IsAuthenticated() {
		scr = screenList
	}

	return &model{
		ctx:         ctx,
		sessions:    sessions,
		tasks:       tasks,
		events:      make(chan session.Event, 8),
		screen:      scr,
		loginInputs: []textinput.Model{username, password},
		search:      search,
		sortBy:      view.SortByDueDate,
		sortOrder:   view.OrderAsc,
	}
}

// Messages.

type eventMsg session.Event

type loginResultMsg struct{ err error }

type tasksMsg struct {
	tasks []task.Task
	err   error
}

type mutateMsg struct{ err error }

func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.events)
	}
}

func (m *model) loadTasks(force bool) tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.tasks.GetAll(m.ctx, force)
		return tasksMsg{tasks: tasks, err: err}
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent(), textinput.Blink}
	if m.screen == screenList {
		m.loading = true
		cmds = append(cmds, m.loadTasks(false))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		switch session.Event(msg) {
		case session.EventLoginSuccess:
			m.screen = screenList
			m.loading = true
			return m, tea.Batch(m.loadTasks(false), m.waitForEvent())
		case session.EventLogout:
			m.screen = screenLogin
			m.loginErr = ""
			m.loginInputs[0].SetValue("")
			m.loginInputs[1].SetValue("")
			m.setLoginFocus(0)
			return m, tea.Batch(m.waitForEvent(), textinput.Blink)
		}
		return m, m.waitForEvent()

	case loginResultMsg:
		m.loading = false
		if msg.err != nil {
			m.loginErr = msg.err.Error()
		}
		// Screen switch happens on the session event, not here.
		return m, nil

	case tasksMsg:
		m.loading = false
		if msg.err != nil {
			m.listErr = "Failed to load tasks. Please try again."
			return m, nil
		}
		m.listErr = ""
		m.all = msg.tasks
		m.applyView()
		return m, nil

	case mutateMsg:
		if msg.err != nil {
			m.listErr = msg.err.Error()
			return m, nil
		}
		m.listErr = ""
		return m, m.loadTasks(false)

	case tea.KeyMsg:
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenList:
			return m.updateList(msg)
		case screenForm:
			return m.updateForm(msg)
		}
	}

	return m, nil
}

// Login screen.

func (m *model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.setLoginFocus((m.loginFocus + 1) % 2)
		return m, nil
	case "enter":
		username := m.loginInputs[0].Value()
		password := m.loginInputs[1].Value()
		m.loading = true
		m.loginErr = ""
		return m, func() tea.Msg {
			_, err := m.sessions.Login(m.ctx, username, password)
			return loginResultMsg{err: err}
		}
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

func (m *model) setLoginFocus(i int) {
	m.loginFocus = i
	for j := range m.loginInputs {
		if j == i {
			m.loginInputs[j].Focus()
		} else {
			m.loginInputs[j].Blur()
		}
	}
}

// List screen.

func (m *model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter", "esc":
			m.searching = false
			m.search.Blur()
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.applyView()
			return m, cmd
		}
		m.applyView()
		return m, nil
	}

	// Delete confirmation takes over the keymap until resolved.
	if m.pendingDelete != 0 {
		switch msg.String() {
		case "y", "Y":
			id := m.pendingDelete
			m.pendingDelete = 0
			return m, func() tea.Msg {
				return mutateMsg{err: m.tasks.Delete(m.ctx, id)}
			}
		default:
			m.pendingDelete = 0
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "f":
		m.filterIndex = (m.filterIndex + 1) % len(statusFilters)
		m.applyView()
	case "s":
		switch m.sortBy {
		case view.SortByDueDate:
			m.sortBy = view.SortByTitle
		case view.SortByTitle:
			m.sortBy = view.SortByStatus
		default:
			m.sortBy = view.SortByDueDate
		}
		m.applyView()
	case "o":
		if m.sortOrder == view.OrderAsc {
			m.sortOrder = view.OrderDesc
		} else {
			m.sortOrder = view.OrderAsc
		}
		m.applyView()
	case "r":
		m.loading = true
		return m, m.loadTasks(true)
	case "a":
		m.openForm(form.ModeCreate, nil)
		return m, textinput.Blink
	case "e", "enter":
		if t := m.selected(); t != nil {
			if !t.Editable {
				m.listErr = "Completed tasks cannot be edited."
				return m, nil
			}
			m.openForm(form.ModeEdit, t)
			return m, textinput.Blink
		}
	case "c":
		if t := m.selected(); t != nil {
			id := t.ID
			return m, func() tea.Msg {
				_, err := m.tasks.MarkCompleted(m.ctx, id)
				return mutateMsg{err: err}
			}
		}
	case "d":
		if t := m.selected(); t != nil {
			m.pendingDelete = t.ID
		}
	case "L":
		m.sessions.Logout()
		return m, nil
	}

	return m, nil
}

func (m *model) selected() *task.Task {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	t := m.rows[m.cursor]
	return &t
}

// applyView reprojects the visible rows from the cached collection.
func (m *model) applyView() {
	m.rows = view.Project(m.all, view.Params{
		SearchQuery:  m.search.Value(),
		StatusFilter: statusFilters[m.filterIndex],
		SortBy:       m.sortBy,
		SortOrder:    m.sortOrder,
	})
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Form screen.

func (m *model) openForm(mode form.Mode, t *task.Task) {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 100
	desc := textinput.New()
	desc.Placeholder = "Description"
	desc.CharLimit = 500
	due := textinput.New()
	due.Placeholder = task.DateLayout

	m.formMode = mode
	m.formErrs = nil
	m.formStatus = 0
	m.formTaskID = 0

	if mode == form.ModeEdit && t != nil {
		m.formTaskID = t.ID
		title.SetValue(t.Title)
		desc.SetValue(t.Description)
		due.SetValue(t.DueDate)
		for i, s := range task.Statuses() {
			if s == t.Status {
				m.formStatus = i
			}
		}
	} else {
		// New tasks default to a due date of tomorrow.
		due.SetValue(time.Now().AddDate(0, 0, 1).Format(task.DateLayout))
	}

	m.formInputs = []textinput.Model{title, desc, due}
	m.formFocus = 0
	m.formInputs[0].Focus()
	m.screen = screenForm
}

func (m *model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	const statusRow = 3 // virtual focus slot after the three text inputs

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.screen = screenList
		return m, nil
	case "tab", "down":
		m.setFormFocus((m.formFocus + 1) % 4)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.setFormFocus((m.formFocus + 3) % 4)
		return m, textinput.Blink
	case "left", "right":
		if m.formFocus == statusRow {
			n := len(task.Statuses())
			if msg.String() == "left" {
				m.formStatus = (m.formStatus + n - 1) % n
			} else {
				m.formStatus = (m.formStatus + 1) % n
			}
			return m, nil
		}
	case "enter":
		return m.submitForm()
	}

	if m.formFocus < len(m.formInputs) {
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) setFormFocus(i int) {
	m.formFocus = i
	for j := range m.formInputs {
		if j == i {
			m.formInputs[j].Focus()
		} else {
			m.formInputs[j].Blur()
		}
	}
}

func (m *model) submitForm() (tea.Model, tea.Cmd) {
	draft := form.Draft{
		Title:       m.formInputs[0].Value(),
		Description: m.formInputs[1].Value(),
		DueDate:     m.formInputs[2].Value(),
		Status:      task.Statuses()[m.formStatus],
	}

	m.formErrs = form.Validate(draft, m.formMode, time.Now())
	if len(m.formErrs) > 0 {
		return m, nil
	}

	in := store.Input{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		DueDate:     draft.DueDate,
	}

	mode, id := m.formMode, m.formTaskID
	m.screen = screenList
	m.loading = true
	return m, func() tea.Msg {
		var err error
		if mode == form.ModeEdit {
			_, err = m.tasks.Update(m.ctx, id, in)
		} else {
			_, err = m.tasks.Create(m.ctx, in)
		}
		return mutateMsg{err: err}
	}
}

// Views.

func (m *model) View() string {
	switch m.screen {
	case screenLogin:
		return m.viewLogin()
	case screenForm:
		return m.viewForm()
	default:
		return m.viewList()
	}
}

func (m *model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Task Manager — Sign in"))
	b.WriteString("\n\n")
	for i := range m.loginInputs {
		b.WriteString(m.loginInputs[i].View())
		b.WriteString("\n")
	}
	if m.loading {
		b.WriteString("\nSigning in...\n")
	}
	if m.loginErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.loginErr) + "\n")
	}
	b.WriteString("\n" + faintStyle.Render("tab: switch field • enter: sign in • esc: quit"))
	return b.String()
}

func (m *model) viewList() string {
	var b strings.Builder

	header := "Tasks"
	if u := m.sessions.CurrentUser(); u != nil {
		header = fmt.Sprintf("Tasks — %s", u.Name)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	stats := view.Aggregate(m.all)
	b.WriteString(statsStyle.Render(fmt.Sprintf(
		"total %d • pending %d • in progress %d • completed %d",
		stats.Total, stats.Pending, stats.InProgress, stats.Completed)))
	b.WriteString("\n")

	b.WriteString(faintStyle.Render(fmt.Sprintf(
		"filter: %s • sort: %s %s", statusFilters[m.filterIndex], m.sortBy, m.sortOrder)))
	b.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString("Loading...\n")
	case m.listErr != "":
		b.WriteString(errorStyle.Render(m.listErr) + "\n")
	case len(m.rows) == 0:
		b.WriteString("No tasks found\n")
	}

	for i, t := range m.rows {
		line := fmt.Sprintf("%4d  %-48s  %-11s  %s",
			t.ID, truncate(t.Title, 48), t.Status, view.DaysUntilDue(t.DueDate, time.Now()))
		if style, ok := statusStyles[t.Status]; ok {
			line = style.Render(line)
		}
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if m.pendingDelete != 0 {
		b.WriteString("\n" + errorStyle.Render(
			fmt.Sprintf("Delete task %d? (y/n)", m.pendingDelete)) + "\n")
	}

	b.WriteString("\n" + faintStyle.Render(
		"a: add • e: edit • c: complete • d: delete • /: search • f: filter • s: sort • o: order • r: refresh • L: logout • q: quit"))
	return b.String()
}

func (m *model) viewForm() string {
	var b strings.Builder
	if m.formMode == form.ModeEdit {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Edit task %d", m.formTaskID)))
	} else {
		b.WriteString(titleStyle.Render("New task"))
	}
	b.WriteString("\n\n")

	labels := []string{"Title", "Description", "Due date"}
	for i := range m.formInputs {
		b.WriteString(labels[i] + "\n")
		b.WriteString(m.formInputs[i].View())
		b.WriteString("\n\n")
	}

	status := string(task.Statuses()[m.formStatus])
	if m.formFocus == 3 {
		status = selectedStyle.Render("< " + status + " >")
	}
	b.WriteString("Status\n" + status + "\n")

	for _, e := range m.formErrs {
		b.WriteString("\n" + errorStyle.Render(e.Message))
	}

	b.WriteString("\n\n" + faintStyle.Render("tab: next field • enter: save • esc: cancel"))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
