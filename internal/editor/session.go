// Package editor keeps the draft of the selected note and commits it to the
// collection after a quiet period.
//
// Every edit cancels the pending commit and arms a new one, so a burst of
// edits produces a single commit carrying the last values. A commit is skipped
// when the draft equals what was last saved. Closing a session drops its
// pending commit: edits made less than one delay before Close are lost.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/quire/internal/models"
)

// DefaultDelay is the quiet period between the last edit and its commit.
const DefaultDelay = time.Second

// Status is the synchronization state of a session.
type Status int

const (
	Idle Status = iota
	PendingCommit
	Saving
	SaveFailed
)

// String returns the label shown next to the editor.
func (s Status) String() string {
	switch s {
	case PendingCommit:
		return "Unsaved changes"
	case Saving:
		return "Saving…"
	case SaveFailed:
		return "Save failed"
	default:
		return "Saved"
	}
}

// Committer persists a note. *notes.Manager implements it.
type Committer interface {
	Update(ctx context.Context, id, title, content string) error
}

// Draft is the editable buffer of a session.
type Draft struct {
	ID      string
	Title   string
	Content string
}

func (d Draft) same(o Draft) bool {
	return d.Title == o.Title && d.Content == o.Content
}

// Session is the editor state for one selected note. It is safe for
// concurrent use; commits run on the clock's timer goroutine.
type Session struct {
	committer Committer
	clock     Clock
	delay     time.Duration
	ctx       context.Context
	logger    *slog.Logger
	onSaved   func(Draft)
	onFailed  func(Draft, error)

	mu        sync.Mutex
	draft     Draft
	lastSaved Draft
	status    Status
	timer     Timer
	gen       uint64
	closed    bool
	onStatus  func(Status)
}

// Option configures a Session.
type Option func(*Session)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithContext sets the context passed to the committer.
func WithContext(ctx context.Context) Option {
	return func(s *Session) {
		s.ctx = ctx
	}
}

// WithLogger sets the logger for failed commits.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// OnSaved registers fn to run after every successful commit.
func OnSaved(fn func(Draft)) Option {
	return func(s *Session) {
		s.onSaved = fn
	}
}

// OnFailed registers fn to run after every failed commit.
func OnFailed(fn func(Draft, error)) Option {
	return func(s *Session) {
		s.onFailed = fn
	}
}

// Open starts a session whose buffer and last-saved snapshot are note.
func Open(note models.Note, committer Committer, opts ...Option) *Session {
	d := Draft{ID: note.ID, Title: note.Title, Content: note.Content}
	s := &Session{
		committer: committer,
		clock:     wallClock{},
		delay:     DefaultDelay,
		ctx:       context.Background(),
		logger:    slog.Default(),
		draft:     d,
		lastSaved: d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID is the identifier of the edited note.
func (s *Session) ID() string {
	return s.draft.ID
}

// Draft returns the current buffer.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Status returns the current synchronization state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnStatus registers fn to receive every status change. It replaces any
// previous function. fn must not call back into the session.
func (s *Session) OnStatus(fn func(Status)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// SetTitle replaces the title in the buffer and restarts the quiet period.
func (s *Session) SetTitle(title string) {
	s.edit(func(d *Draft) { d.Title = title })
}

// SetContent replaces the content in the buffer and restarts the quiet period.
func (s *Session) SetContent(content string) {
	s.edit(func(d *Draft) { d.Content = content })
}

// Close discards the buffer and any pending commit. A commit already in
// flight still reaches the committer but its result is ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) edit(fn func(*Draft)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn(&s.draft)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
	notify := s.setStatusLocked(PendingCommit)
	s.mu.Unlock()

	notify()
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	d := s.draft
	if d.same(s.lastSaved) {
		notify := s.setStatusLocked(Idle)
		s.mu.Unlock()
		notify()
		return
	}
	notify := s.setStatusLocked(Saving)
	s.mu.Unlock()
	notify()

	err := s.committer.Update(s.ctx, d.ID, d.Title, d.Content)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var notifies []func()
	if err != nil {
		notifies = append(notifies, s.setStatusLocked(SaveFailed))
	} else {
		s.lastSaved = d
	}
	next := Idle
	if s.timer != nil {
		next = PendingCommit
	}
	notifies = append(notifies, s.setStatusLocked(next))
	s.mu.Unlock()

	for _, n := range notifies {
		n()
	}
	if err != nil {
		s.logger.Warn("editor: commit failed", slog.String("id", d.ID), slog.String("error", err.Error()))
		if s.onFailed != nil {
			s.onFailed(d, err)
		}
		return
	}
	if s.onSaved != nil {
		s.onSaved(d)
	}
}

// setStatusLocked changes the status and returns the notification to run
// once the lock is released.
func (s *Session) setStatusLocked(st Status) func() {
	if s.status == st {
		return func() {}
	}
	s.status = st
	fn := s.onStatus
	if fn == nil {
		return func() {}
	}
	return func() { fn(st) }
}
