// Package tui is the terminal front end: a note list with search and sort
// next to an editor pane that auto-saves.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/listview"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/remote"
	"github.com/starford/quire/internal/workspace"
)

const (
	listWidth     = 38
	toastDuration = 2 * time.Second
	clockInterval = 30 * time.Second
)

type focusArea int

const (
	focusList focusArea = iota
	focusSearch
	focusTitle
	focusContent
)

// Model is the bubbletea model of the application.
type Model struct {
	ctx    context.Context
	notes  *notes.Manager
	ws     *workspace.Workspace
	email  string
	logger *slog.Logger
	send   func(tea.Msg)
	now    func() time.Time
	keys   keyMap

	width  int
	height int
	focus  focusArea
	cursor int
	state  notes.State

	search  textinput.Model
	title   textinput.Model
	content textarea.Model

	// confirming is the note awaiting a y/n delete answer.
	confirming *models.Note

	editStatus editor.Status
	toast      *workspace.Notice
	toastSeq   int
}

func newModel(ctx context.Context, d Deps, send func(tea.Msg)) *Model {
	search := textinput.New()
	search.Placeholder = "Search notes..."
	search.Prompt = "/ "

	title := textinput.New()
	title.Placeholder = "Note title..."
	title.Prompt = ""

	content := textarea.New()
	content.Placeholder = "Start writing your note..."
	content.ShowLineNumbers = false
	content.CharLimit = 0

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if send == nil {
		send = func(tea.Msg) {}
	}
	return &Model{
		ctx:     ctx,
		notes:   d.Notes,
		ws:      d.Workspace,
		email:   d.Email,
		logger:  logger,
		send:    send,
		now:     time.Now,
		keys:    defaultKeys(),
		state:   d.Notes.Snapshot(),
		search:  search,
		title:   title,
		content: content,
	}
}

// Init loads the collection.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refetch(), tickClock())
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case stateMsg:
		m.state = notes.State(msg)
		m.clampCursor()
		return m, nil

	case collectionMsg:
		m.state = m.notes.Snapshot()
		m.clampCursor()
		return m, nil

	case createdMsg:
		if msg.note == nil {
			return m, m.snapshot()
		}
		m.attach(msg.note.ID)
		m.cursor = 0
		cmd := m.focusEditor(focusTitle)
		return m, tea.Batch(cmd, m.waitAndSnapshot())

	case deletedMsg:
		if msg.err != nil {
			m.logger.Debug("tui: delete failed", slog.String("id", msg.id), slog.String("error", msg.err.Error()))
			if remote.IsNotFound(msg.err) {
				// Already gone on the server.
				return m, m.refetch()
			}
		} else if m.ws.Selected() == nil && m.focus != focusSearch {
			m.focus = focusList
			m.title.Blur()
			m.content.Blur()
		}
		return m, m.waitAndSnapshot()

	case statusMsg:
		if msg.id != m.ws.SelectedID() {
			return m, nil
		}
		m.editStatus = msg.status
		if msg.status == editor.Idle {
			return m, m.waitAndSnapshot()
		}
		return m, nil

	case noticeMsg:
		n := workspace.Notice(msg)
		m.toast = &n
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
			return clearToastMsg{seq: seq}
		})

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case changedMsg:
		return m, nil

	case refreshMsg:
		return m, m.refetch()

	case tickMsg:
		return m, tickClock()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirming != nil {
		return m.handleConfirmKey(msg)
	}
	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusTitle, focusContent:
		return m.handleEditorKey(msg)
	}
	return m.handleListKey(msg)
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if n, ok := m.cursorNote(); ok {
			m.ws.Select(n)
			m.attach(n.ID)
			return m, m.focusEditor(focusContent)
		}
	case key.Matches(msg, m.keys.Next):
		if m.ws.Selected() != nil {
			return m, m.focusEditor(focusTitle)
		}
	case key.Matches(msg, m.keys.New):
		return m, m.create()
	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.cursorNote(); ok {
			m.confirming = &n
		}
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Sort):
		return m, m.setSort(m.state.SortBy.Next())
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refetch()
	}
	return m, nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.confirming
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.confirming = nil
		return m, m.remove(n.ID)
	case key.Matches(msg, m.keys.Cancel):
		m.confirming = nil
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.focus = focusList
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != before {
		m.cursor = 0
		return m, tea.Batch(cmd, m.setSearch(q))
	}
	return m, cmd
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.ws.Selected()
	if s == nil {
		m.focus = focusList
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.focus = focusList
		m.title.Blur()
		m.content.Blur()
		return m, nil
	case "tab":
		if m.focus == focusTitle {
			return m, m.focusEditor(focusContent)
		}
		return m, m.focusEditor(focusTitle)
	case "enter":
		if m.focus == focusTitle {
			return m, m.focusEditor(focusContent)
		}
	}

	var cmd tea.Cmd
	if m.focus == focusTitle {
		m.title, cmd = m.title.Update(msg)
		if v := m.title.Value(); v != s.Draft().Title {
			s.SetTitle(v)
		}
		return m, cmd
	}
	m.content, cmd = m.content.Update(msg)
	if v := m.content.Value(); v != s.Draft().Content {
		s.SetContent(v)
	}
	return m, cmd
}

// updateInputs forwards non-key messages such as cursor blinks.
func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusSearch:
		m.search, cmd = m.search.Update(msg)
	case focusTitle:
		m.title, cmd = m.title.Update(msg)
	case focusContent:
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

// attach loads the selected session into the inputs and routes its status
// changes back into the program.
func (m *Model) attach(id string) {
	s := m.ws.Selected()
	if s == nil || s.ID() != id {
		return
	}
	d := s.Draft()
	m.title.SetValue(d.Title)
	m.content.SetValue(d.Content)
	m.editStatus = s.Status()
	send := m.send
	s.OnStatus(func(st editor.Status) {
		send(statusMsg{id: id, status: st})
	})
}

func (m *Model) focusEditor(f focusArea) tea.Cmd {
	m.focus = f
	m.search.Blur()
	if f == focusTitle {
		m.content.Blur()
		return m.title.Focus()
	}
	m.title.Blur()
	return m.content.Focus()
}

func (m *Model) visible() []models.Note {
	return listview.Derive(m.state.Notes, m.state.SearchQuery, m.state.SortBy)
}

func (m *Model) cursorNote() (models.Note, bool) {
	v := m.visible()
	if m.cursor < 0 || m.cursor >= len(v) {
		return models.Note{}, false
	}
	return v[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.state.Notes); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) resize() {
	w := m.width - listWidth - 6
	if w < 20 {
		w = 20
	}
	m.title.Width = w
	m.content.SetWidth(w)
	h := m.height - 9
	if h < 3 {
		h = 3
	}
	m.content.SetHeight(h)
	m.search.Width = listWidth - 4
}

// Commands. Each performs its remote calls off the update loop and reports
// back with a message.

func (m *Model) refetch() tea.Cmd {
	ctx, mgr := m.ctx, m.notes
	send := m.send
	return func() tea.Msg {
		if err := mgr.Refetch(ctx); remote.IsUnauthorized(err) {
			send(noticeMsg(workspace.Notice{
				Title:       "Signed out",
				Description: "Session expired. Run quire login.",
				Kind:        workspace.KindDestructive,
			}))
		}
		return stateMsg(mgr.Snapshot())
	}
}

func (m *Model) setSearch(q string) tea.Cmd {
	ctx, mgr := m.ctx, m.notes
	return func() tea.Msg {
		_ = mgr.SetSearch(ctx, q)
		return stateMsg(mgr.Snapshot())
	}
}

func (m *Model) setSort(s models.SortOption) tea.Cmd {
	ctx, mgr := m.ctx, m.notes
	return func() tea.Msg {
		_ = mgr.SetSort(ctx, s)
		return stateMsg(mgr.Snapshot())
	}
}

func (m *Model) create() tea.Cmd {
	ctx, ws := m.ctx, m.ws
	return func() tea.Msg {
		return createdMsg{note: ws.CreateNote(ctx)}
	}
}

func (m *Model) remove(id string) tea.Cmd {
	ctx, ws := m.ctx, m.ws
	return func() tea.Msg {
		return deletedMsg{id: id, err: ws.DeleteNote(ctx, id)}
	}
}

func (m *Model) snapshot() tea.Cmd {
	mgr := m.notes
	return func() tea.Msg {
		return stateMsg(mgr.Snapshot())
	}
}

// waitAndSnapshot reports the collection once the refetch triggered by the
// last mutation has landed.
func (m *Model) waitAndSnapshot() tea.Cmd {
	mgr := m.notes
	return func() tea.Msg {
		mgr.Wait()
		return stateMsg(mgr.Snapshot())
	}
}

func tickClock() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View renders the two panes, the help line and the current toast.
func (m *Model) View() string {
	list := m.renderList()
	edit := m.renderEditor()

	listPane, editPane := paneStyle, paneStyle
	if m.focus == focusList || m.focus == focusSearch {
		listPane = activePaneStyle
	} else {
		editPane = activePaneStyle
	}
	paneHeight := m.height - 4
	if paneHeight < 5 {
		paneHeight = 5
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Width(listWidth).Height(paneHeight).Render(list),
		editPane.Width(max(m.width-listWidth-4, 20)).Height(paneHeight).Render(edit),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Quire"))
	if m.email != "" {
		b.WriteString(" " + mutedStyle.Render(m.email))
	}
	b.WriteString("\n")
	b.WriteString(m.search.View() + "\n")
	b.WriteString(mutedStyle.Render("Sort: "+m.state.SortBy.Label()) + "\n\n")

	if m.state.Error != "" {
		b.WriteString(errorStyle.Render(m.state.Error) + "\n")
	}

	v := m.visible()
	if len(v) == 0 {
		if m.state.Loading {
			b.WriteString(mutedStyle.Render("Loading...") + "\n")
		} else {
			b.WriteString(mutedStyle.Render(listview.EmptyMessage(m.state.SearchQuery)) + "\n")
		}
	}

	saving, deleting := m.ws.SavingID(), m.ws.DeletingID()
	for i, r := range listview.Rows(v, m.ws.SelectedID(), m.now()) {
		marker := "  "
		if i == m.cursor && (m.focus == focusList || m.focus == focusSearch) {
			marker = cursorStyle.Render("> ")
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		line := marker + titleStyle.Render(truncate(title, listWidth-6))
		switch r.ID {
		case deleting:
			line += " " + errorStyle.Render("deleting")
		case saving:
			line += " " + mutedStyle.Render("saving")
		}
		entry := line + "\n  " + mutedStyle.Render(truncate(r.Preview, listWidth-6)) +
			"\n  " + mutedStyle.Render(r.Updated)
		if r.Selected {
			entry = selectedStyle.Render(entry)
		}
		b.WriteString(entry + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render(listview.StatusLine(m.notes.Total(), len(v), m.state.SearchQuery)))
	return b.String()
}

func (m *Model) renderEditor() string {
	s := m.ws.Selected()
	if s == nil {
		return mutedStyle.Render("No Note Selected\n\nSelect a note from the list or press n to create one.")
	}
	status := mutedStyle.Render(m.editStatus.String())
	if m.editStatus == editor.SaveFailed {
		status = errorStyle.Render(m.editStatus.String())
	}

	var meta string
	if n, ok := m.selectedNote(s.ID()); ok && n.CreatedAt != nil && n.UpdatedAt != nil {
		meta = fmt.Sprintf("Created: %s • Last modified: %s",
			n.CreatedAt.Local().Format("2006-01-02"), n.UpdatedAt.Local().Format("2006-01-02"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.title.View(),
		status+"  "+mutedStyle.Render(meta),
		"",
		m.content.View(),
	)
}

func (m *Model) renderFooter() string {
	bindings := m.keys.listHelp()
	switch {
	case m.confirming != nil:
		bindings = m.keys.confirmHelp()
	case m.focus == focusTitle || m.focus == focusContent:
		bindings = m.keys.editorHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	footer := mutedStyle.Render(strings.Join(parts, " • "))
	if n := m.confirming; n != nil {
		title := n.Title
		if title == "" {
			title = "Untitled"
		}
		footer = errorStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone.", title)) + "  " + footer
	}
	if m.toast != nil {
		style := toastStyle
		if m.toast.Kind == workspace.KindDestructive {
			style = toastErrorStyle
		}
		footer += "  " + style.Render(m.toast.Title+": "+m.toast.Description)
	}
	return footer
}

func (m *Model) selectedNote(id string) (models.Note, bool) {
	for _, n := range m.state.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
