// Package workspace ties the note collection to the editor: it owns the
// selection and turns create, delete and save outcomes into notices.
package workspace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notes"
)

// UntitledTitle is the title of freshly created notes.
const UntitledTitle = "Untitled Note"

// Kind selects how a notice is rendered.
type Kind int

const (
	KindInfo Kind = iota
	KindDestructive
)

// Notice is a transient message for the user.
type Notice struct {
	Title       string
	Description string
	Kind        Kind
}

// Notifier displays notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notes is the part of *notes.Manager the workspace drives.
type Notes interface {
	Create(ctx context.Context, title, content string) *models.Note
	Update(ctx context.Context, id, title, content string) error
	Delete(ctx context.Context, id string) error
}

var _ Notes = (*notes.Manager)(nil)

// Workspace is safe for concurrent use.
type Workspace struct {
	notes          Notes
	notifier       Notifier
	logger         *slog.Logger
	editorOpts     []editor.Option
	autosaveNotice bool
	onChange       func()

	mu         sync.Mutex
	selected   *editor.Session
	savingID   string
	deletingID string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithNotifier sets where notices go. By default they are dropped.
func WithNotifier(n Notifier) Option {
	return func(w *Workspace) {
		w.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = l
	}
}

// WithEditorOptions are applied to every editor session the workspace opens.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(w *Workspace) {
		w.editorOpts = append(w.editorOpts, opts...)
	}
}

// WithAutosaveNotice enables an "Auto-saved" notice after each commit.
func WithAutosaveNotice(on bool) Option {
	return func(w *Workspace) {
		w.autosaveNotice = on
	}
}

// WithChangeFunc registers fn to run whenever the selection or the
// saving/deleting markers change.
func WithChangeFunc(fn func()) Option {
	return func(w *Workspace) {
		w.onChange = fn
	}
}

// New returns a workspace with nothing selected.
func New(n Notes, opts ...Option) *Workspace {
	w := &Workspace{
		notes:    n,
		notifier: NotifierFunc(func(Notice) {}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Selected returns the editor session of the selected note, or nil.
func (w *Workspace) Selected() *editor.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

// SelectedID is the identifier of the selected note, or "".
func (w *Workspace) SelectedID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil {
		return ""
	}
	return w.selected.ID()
}

// SavingID is the note whose commit is in flight, or "".
func (w *Workspace) SavingID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.savingID
}

// DeletingID is the note being deleted, or "".
func (w *Workspace) DeletingID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deletingID
}

// Select closes the current editor session, dropping any pending commit,
// and opens one for note.
func (w *Workspace) Select(note models.Note) *editor.Session {
	opts := append([]editor.Option{
		editor.WithLogger(w.logger),
		editor.OnSaved(w.saved),
		editor.OnFailed(w.failed),
	}, w.editorOpts...)
	s := editor.Open(note, committer{w}, opts...)

	w.mu.Lock()
	prev := w.selected
	w.selected = s
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	w.changed()
	return s
}

// ClearSelection closes the current editor session.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	prev := w.selected
	w.selected = nil
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
		w.changed()
	}
}

// CreateNote creates an empty note and selects it. It returns nil when the
// note could not be created.
func (w *Workspace) CreateNote(ctx context.Context) *models.Note {
	n := w.notes.Create(ctx, UntitledTitle, "")
	if n == nil {
		w.notifier.Notify(Notice{
			Title:       "Create failed",
			Description: "Failed to create the note. Please try again.",
			Kind:        KindDestructive,
		})
		return nil
	}
	w.Select(*n)
	w.notifier.Notify(Notice{
		Title:       "Note created",
		Description: "A new note has been created successfully.",
	})
	return n
}

// DeleteNote deletes note id and deselects it if it was selected.
func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	w.setMarker(&w.deletingID, id)
	defer w.setMarker(&w.deletingID, "")

	if err := w.notes.Delete(ctx, id); err != nil {
		w.notifier.Notify(Notice{
			Title:       "Delete failed",
			Description: "Failed to delete the note. Please try again.",
			Kind:        KindDestructive,
		})
		return err
	}

	w.mu.Lock()
	var prev *editor.Session
	if w.selected != nil && w.selected.ID() == id {
		prev = w.selected
		w.selected = nil
	}
	w.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	w.notifier.Notify(Notice{
		Title:       "Note deleted",
		Description: "The note has been deleted successfully.",
		Kind:        KindDestructive,
	})
	return nil
}

// Close closes the selected session. Uncommitted edits are lost.
func (w *Workspace) Close() {
	w.ClearSelection()
}

func (w *Workspace) saved(editor.Draft) {
	if !w.autosaveNotice {
		return
	}
	w.notifier.Notify(Notice{
		Title:       "Auto-saved",
		Description: "Your changes have been saved automatically.",
	})
}

func (w *Workspace) failed(_ editor.Draft, err error) {
	w.notifier.Notify(Notice{
		Title:       "Save failed",
		Description: err.Error(),
		Kind:        KindDestructive,
	})
}

func (w *Workspace) setMarker(field *string, id string) {
	w.mu.Lock()
	*field = id
	w.mu.Unlock()
	w.changed()
}

func (w *Workspace) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

// committer marks the note as saving for the duration of each commit.
type committer struct {
	w *Workspace
}

func (c committer) Update(ctx context.Context, id, title, content string) error {
	c.w.setMarker(&c.w.savingID, id)
	defer c.w.setMarker(&c.w.savingID, "")
	return c.w.notes.Update(ctx, id, title, content)
}
