package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasklist/internal/api"
	"tasklist/internal/model"
	"tasklist/internal/render"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type screen int

const (
	screenList screen = iota
	screenForm
	screenConfirm
	screenDetail
)

type tasksLoadedMsg struct {
	tasks   []model.Task
	offline bool
	err     error
}

// taskSavedMsg reports a create or update. err is set when the API refused it; the
// task was not saved anywhere and text holds what the user typed.
type taskSavedMsg struct {
	task    model.Task
	created bool
	offline bool
	text    string
	err     error
}

type taskDeletedMsg struct {
	id      int64
	offline bool
	err     error
}

// taskEventMsg is a change another client made, from the live feed.
type taskEventMsg struct {
	event model.TaskEvent
}

type appKeyMap struct {
	Quit     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Activate key.Binding
	Add      key.Binding
	Edit     key.Binding
	Detail   key.Binding
	Reload   key.Binding
	Copy     key.Binding
	Describe key.Binding
	Delete   key.Binding
	Status   key.Binding
	Priority key.Binding
	Back     key.Binding
}

func defaultAppKeyMap() appKeyMap {
	return appKeyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next entity")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev entity")),
		Activate: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/edit")),
		Add:      key.NewBinding(key.WithKeys("a", "n"), key.WithHelp("a", "add")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Detail:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Describe: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "edit description")),
		Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Status:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "status")),
		Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

type appModel struct {
	ctx  context.Context
	svc  *api.Service
	vp   *viewportSignal
	keys appKeyMap

	width  int
	height int

	loaded  bool
	offline bool
	tasks   []model.Task
	// filter is a mention or hashtag (sigil included) the list is narrowed to.
	filter string

	screen  screen
	list    list.Model
	focus   *rowFocus
	form    formModel
	confirm confirmDelete

	detailID     int64
	detailTarget int

	editor descriptionEdit

	// events is the live change feed; nil when the API has none.
	events <-chan model.TaskEvent

	flash string
}

func newAppModel(ctx context.Context, svc *api.Service, vp *viewportSignal) appModel {
	focus := &rowFocus{target: -1}
	m := appModel{
		ctx:    ctx,
		svc:    svc,
		vp:     vp,
		keys:   defaultAppKeyMap(),
		focus:  focus,
		form:   newFormModel(vp),
		screen: screenList,
	}
	m.list = newList("Tasks", nil, newTaskDelegate(focus, vp))
	if s := vp.Size(); s.Width > 0 {
		m.width, m.height = s.Width, s.Height
		m.resize()
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.loadTasks(), waitForEvent(m.events))
}

// waitForEvent delivers the next live change. A closed or missing feed yields nothing.
func waitForEvent(events <-chan model.TaskEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return taskEventMsg{event: ev}
	}
}

func (m appModel) loadTasks() tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		tasks, err := svc.List(ctx, api.ListOptions{})
		return tasksLoadedMsg{tasks: tasks, offline: svc.Offline(), err: err}
	}
}

func (m appModel) createTask(in model.TaskInput) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		t, err := svc.Create(ctx, in)
		return taskSavedMsg{task: t, created: true, offline: svc.Offline(), text: in.RawText, err: err}
	}
}

func (m appModel) updateTask(id int64, patch model.TaskPatch) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		t, err := svc.Update(ctx, id, patch)
		return taskSavedMsg{task: t, offline: svc.Offline(), err: err}
	}
}

func (m appModel) deleteTask(id int64) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		err := svc.Delete(ctx, id)
		return taskDeletedMsg{id: id, offline: svc.Offline(), err: err}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Publish(viewportSize{Width: msg.Width, Height: msg.Height})
		m.resize()
		return m, nil

	case tasksLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.flash = refusedFlash("Tasks not loaded", msg.err)
			return m, nil
		}
		m.offline = msg.offline
		m.tasks = msg.tasks
		m.refreshItems(0)
		return m, nil

	case taskSavedMsg:
		if msg.err != nil {
			m.flash = refusedFlash("Task not saved", msg.err)
			// Give a refused new task back to the add form unless the user moved on.
			if msg.created && m.form.active() && m.form.adding() && m.form.value() == "" {
				m.form.input.SetValue(msg.text)
			}
			return m, nil
		}
		m.offline = msg.offline
		// The live feed may have delivered the task already.
		m.replaceTask(msg.task)
		if msg.created {
			m.flash = "Task added"
		} else {
			m.flash = "Task saved"
		}
		m.refreshItems(msg.task.ID)
		return m, nil

	case taskDeletedMsg:
		if msg.err != nil {
			m.flash = refusedFlash("Task not deleted", msg.err)
			return m, nil
		}
		m.offline = msg.offline
		m.removeTask(msg.id)
		m.refreshItems(0)
		m.flash = "Task deleted"
		return m, nil

	case taskEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.events)

	case urlOpenDoneMsg:
		if msg.err != nil {
			m.flash = "open failed: " + msg.err.Error()
		} else {
			m.flash = "Opened " + msg.url
		}
		return m, nil

	case clipboardDoneMsg:
		if msg.err != nil {
			m.flash = "copy failed: " + msg.err.Error()
		} else {
			m.flash = "Copied " + msg.text
		}
		return m, nil

	case editorDoneMsg:
		cmd := m.finishDescriptionEdit(msg)
		return m, cmd

	case formSubmitMsg:
		return m.handleSubmit(msg)

	case formCancelMsg:
		m.closeForm()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		m.flash = ""
		switch m.screen {
		case screenForm:
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			m.resize()
			return m, cmd
		case screenConfirm:
			return m.updateConfirm(msg)
		case screenDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}

	if m.screen == screenForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// close releases the viewport subscription. Every copy of the model shares it, so
// closing any copy is enough and closing twice is harmless.
func (m appModel) close() {
	m.form.close()
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	m.close()
	return m, tea.Quit
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it, hasSel := selectedTask(m.list)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		if hasSel {
			delta := 1
			if key.Matches(msg, m.keys.Prev) {
				delta = -1
			}
			m.focus.cycle(it.task.ID, it.display.NumTargets(), delta)
		}
		return m, nil

	case key.Matches(msg, m.keys.Activate):
		if !hasSel {
			return m, m.openAdd()
		}
		if i := m.focus.activeFor(it.task.ID); i >= 0 {
			return m.activate(it.display.Activate(i))
		}
		return m, m.openEdit(it.task)

	case key.Matches(msg, m.keys.Edit):
		if hasSel {
			return m, m.openEdit(it.task)
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		return m, m.openAdd()

	case key.Matches(msg, m.keys.Detail):
		if hasSel {
			m.screen = screenDetail
			m.detailID = it.task.ID
			m.detailTarget = -1
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.flash = "Reloading…"
		return m, m.loadTasks()

	case key.Matches(msg, m.keys.Copy):
		if hasSel {
			return m, copyToClipboard(copyText(it.task, it.display, m.focus.activeFor(it.task.ID)))
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if hasSel {
			m.confirm = confirmDelete{
				taskID:   it.task.ID,
				body:     fmt.Sprintf("Delete %q?", it.task.Title),
				returnTo: screenList,
				focus:    confirmFocusCancel,
			}
			m.screen = screenConfirm
		}
		return m, nil

	case key.Matches(msg, m.keys.Status):
		if hasSel {
			next := it.task.Status.Next()
			return m, m.updateTask(it.task.ID, model.TaskPatch{Status: &next})
		}
		return m, nil

	case key.Matches(msg, m.keys.Priority):
		if hasSel {
			next := it.task.Priority.Next()
			return m, m.updateTask(it.task.ID, model.TaskPatch{Priority: &next})
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		switch {
		case hasSel && m.focus.activeFor(it.task.ID) >= 0:
			m.focus.clear()
		case m.filter != "":
			m.filter = ""
			m.refreshItems(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if next, ok := selectedTask(m.list); ok && (!hasSel || next.task.ID != it.task.ID) {
		m.focus.clear()
	}
	return m, cmd
}

// activate performs an entity action; it takes the place of editing the row.
func (m appModel) activate(a render.Action) (tea.Model, tea.Cmd) {
	switch a.Kind {
	case render.ActionOpenURL, render.ActionMailto:
		return m, openURL(a.Value)
	case render.ActionFilter:
		m.filter = a.Value
		m.focus.clear()
		m.screen = screenList
		m.refreshItems(0)
		m.flash = "Filtered by " + a.Value + " (esc to clear)"
	}
	return m, nil
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t, ok := m.taskByID(m.detailID)
	if !ok {
		m.screen = screenList
		return m, nil
	}
	d := render.NewDisplay(t.Text())

	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Detail), key.Matches(msg, m.keys.Quit):
		m.screen = screenList
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		n := d.NumTargets()
		if n == 0 {
			return m, nil
		}
		switch {
		case m.detailTarget < 0 && key.Matches(msg, m.keys.Next):
			m.detailTarget = 0
		case m.detailTarget < 0:
			m.detailTarget = n - 1
		case key.Matches(msg, m.keys.Next):
			m.detailTarget = (m.detailTarget + 1) % n
		default:
			m.detailTarget = (m.detailTarget - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Activate):
		if m.detailTarget >= 0 {
			return m.activate(d.Activate(m.detailTarget))
		}
		return m, m.openEdit(t)
	case key.Matches(msg, m.keys.Edit):
		return m, m.openEdit(t)
	case key.Matches(msg, m.keys.Copy):
		return m, copyToClipboard(copyText(t, d, m.detailTarget))
	case key.Matches(msg, m.keys.Describe):
		return m, m.editDescription(t)
	}
	return m, nil
}

// copyText is the focused entity's text, or the whole task text when none is focused.
func copyText(t model.Task, d *render.Display, target int) string {
	if a := d.Activate(target); a.Kind != render.ActionNone {
		return a.Entity.Text
	}
	return t.Text()
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirm.focus = m.confirm.focus.toggle()
		return m, nil
	case "y":
		return m.confirmDeletion()
	case "n", "esc":
		m.screen = m.confirm.returnTo
		return m, nil
	case "enter":
		if m.confirm.focus == confirmFocusConfirm {
			return m.confirmDeletion()
		}
		m.screen = m.confirm.returnTo
		return m, nil
	}
	return m, nil
}

// refusedFlash explains a request the task API rejected, quoting its reason.
func refusedFlash(what string, err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return fmt.Sprintf("%s: the API refused it (%d): %s", what, apiErr.StatusCode, apiErr.Body)
	}
	return what + ": " + err.Error()
}

func (m appModel) confirmDeletion() (tea.Model, tea.Cmd) {
	id := m.confirm.taskID
	m.confirm = confirmDelete{}
	m.closeForm()
	return m, m.deleteTask(id)
}

// handleSubmit applies the empty-text rules: adding cancels, editing asks to delete.
func (m appModel) handleSubmit(msg formSubmitMsg) (tea.Model, tea.Cmd) {
	if msg.text == "" {
		if msg.taskID == 0 {
			m.closeForm()
			return m, nil
		}
		m.confirm = confirmDelete{
			taskID:   msg.taskID,
			body:     "The task text is empty. Delete the task instead?",
			returnTo: screenForm,
			focus:    confirmFocusConfirm,
		}
		m.screen = screenConfirm
		return m, nil
	}

	if msg.taskID == 0 {
		in := model.NewTaskInput(msg.text, time.Now())
		in.Status = msg.status
		in.Priority = msg.priority
		in.IsPublic = msg.public
		create := m.createTask(in)
		focus := m.form.openAdd()
		m.resize()
		return m, tea.Batch(create, focus)
	}

	patch := model.TextPatch(msg.text)
	status, priority, public := msg.status, msg.priority, msg.public
	patch.Status = &status
	patch.Priority = &priority
	patch.IsPublic = &public
	m.closeForm()
	return m, m.updateTask(msg.taskID, patch)
}

func (m *appModel) openAdd() tea.Cmd {
	m.screen = screenForm
	cmd := m.form.openAdd()
	m.resize()
	return cmd
}

func (m *appModel) openEdit(t model.Task) tea.Cmd {
	m.screen = screenForm
	cmd := m.form.openEdit(t)
	m.resize()
	return cmd
}

func (m *appModel) closeForm() {
	m.form.hide()
	m.screen = screenList
	m.resize()
}

func (m *appModel) refreshItems(selectID int64) {
	if selectID == 0 {
		if it, ok := selectedTask(m.list); ok {
			selectID = it.task.ID
		}
	}
	_ = m.list.SetItems(taskItems(m.tasks, m.filter))
	if selectID != 0 {
		selectTaskByID(&m.list, selectID)
	}
}

// applyEvent folds a remote change into the list without a round trip.
func (m *appModel) applyEvent(ev model.TaskEvent) {
	switch ev.Kind {
	case model.EventCreated, model.EventUpdated:
		if ev.Task == nil {
			return
		}
		m.replaceTask(*ev.Task)
	case model.EventDeleted:
		m.removeTask(ev.ID)
		if m.screen == screenDetail && m.detailID == ev.ID {
			m.screen = screenList
		}
	default:
		return
	}
	m.refreshItems(0)
}

func (m *appModel) replaceTask(t model.Task) {
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			return
		}
	}
	m.tasks = append([]model.Task{t}, m.tasks...)
}

func (m *appModel) removeTask(id int64) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
			return
		}
	}
}

func (m appModel) taskByID(id int64) (model.Task, bool) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// resize gives the list whatever height the header, footer and form leave over.
func (m *appModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := m.height - 2
	if m.form.active() {
		h -= lipgloss.Height(m.form.View()) + 1
	}
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width, h)
}

func (m appModel) View() string {
	if !m.loaded {
		return "Loading tasks…"
	}
	if m.screen == screenConfirm {
		modal := renderConfirmModal(m.width, "Delete this task?", m.confirm.body, "Delete", "Cancel", m.confirm.focus)
		if m.width <= 0 || m.height <= 0 {
			return modal
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	bodyH := m.height - 2
	var body string
	if m.screen == screenDetail {
		t, _ := m.taskByID(m.detailID)
		body = fitPane(renderDetail(t, m.width, m.detailTarget), m.width, bodyH)
	} else {
		body = m.listView()
		if m.form.active() {
			body += "\n" + m.form.View()
		}
	}
	return strings.Join([]string{m.headerView(), body, m.footerView()}, "\n")
}

func (m appModel) listView() string {
	if len(m.list.Items()) > 0 {
		return m.list.View()
	}
	line := glyphCheckbox() + " Type to add new task"
	if m.filter != "" {
		line = "No tasks with " + m.filter
	}
	return fitPane(styleMuted().Render(line), m.width, m.list.Height())
}

func (m appModel) headerView() string {
	parts := []string{styleTitle().Render(fmt.Sprintf("Tasks (%d)", len(m.list.Items())))}
	if m.filter != "" {
		parts = append(parts, render.DefaultPalette().Style(filterKind(m.filter)).Render(m.filter))
	}
	if m.offline {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorWarn).Render(glyphOffline()+" offline, showing local data"))
	}
	return fitPane(strings.Join(parts, "  "), m.width, 1)
}

func (m appModel) footerView() string {
	if m.flash != "" {
		return fitPane(styleMuted().Render(m.flash), m.width, 1)
	}
	var help string
	switch m.screen {
	case screenDetail:
		help = "tab: next entity   enter: open/edit   e: edit   d: description   y: copy   esc: back"
	case screenForm:
		help = ""
	default:
		help = "a: add   enter: open/edit   tab: entities   space: status   p: priority   x: delete   v: view   y: copy   r: reload   q: quit"
	}
	return fitPane(styleMuted().Render(help), m.width, 1)
}
