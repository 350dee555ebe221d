// Package notes keeps the client's view of the note collection. The list is
// only ever replaced by a full refetch; mutations never patch it locally.
package notes

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/remote"
)

// Error messages stored in State.Error.
const (
	ErrLoad   = "Failed to load notes"
	ErrCreate = "Failed to create note"
	ErrUpdate = "Failed to update note"
	ErrDelete = "Failed to delete note"
	ErrFetch  = "Failed to fetch note"
)

// Store is the remote side of the collection. *remote.Client implements it.
type Store interface {
	List(ctx context.Context, q remote.ListQuery) ([]models.Note, error)
	Create(ctx context.Context, title, content string) (models.Note, error)
	Update(ctx context.Context, id, title, content string) (*models.Note, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Note, error)
}

var _ Store = (*remote.Client)(nil)

// State is an immutable snapshot of the collection.
type State struct {
	Notes       []models.Note
	SearchQuery string
	SortBy      models.SortOption
	Loading     bool
	Error       string
}

// Manager owns the collection state. It is safe for concurrent use.
//
// Refetches are neither coalesced nor cancelled: whichever List response
// arrives last replaces the collection, even if it was issued first.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	inflight int
	subs     map[int]func(State)
	nextSub  int

	background sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for failed operations.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager returns an empty collection with the default sort. Call Refetch
// to load it.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.Default(),
		state:  State{SortBy: models.SortNewest, Notes: []models.Note{}},
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Total is the number of notes in the current collection.
func (m *Manager) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.Notes)
}

// Subscribe registers fn to receive every new state. The returned function
// unregisters it. fn runs on the goroutine that changed the state and must
// not block.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Wait blocks until every refetch triggered by a mutation has finished.
func (m *Manager) Wait() {
	m.background.Wait()
}

// SetSearch changes the search query and refetches.
func (m *Manager) SetSearch(ctx context.Context, q string) error {
	m.update(func(s *State) { s.SearchQuery = q })
	return m.Refetch(ctx)
}

// SetSort changes the sort order and refetches.
func (m *Manager) SetSort(ctx context.Context, sort models.SortOption) error {
	m.update(func(s *State) { s.SortBy = sort })
	return m.Refetch(ctx)
}

// Refetch loads the collection with the current parameters. On failure the
// previous collection is kept and Error is set.
func (m *Manager) Refetch(ctx context.Context) error {
	var q remote.ListQuery
	m.update(func(s *State) {
		m.inflight++
		s.Loading = true
		q = remote.ListQuery{Search: s.SearchQuery, Sort: s.SortBy}
	})

	notes, err := m.store.List(ctx, q)

	m.update(func(s *State) {
		m.inflight--
		s.Loading = m.inflight > 0
		if err != nil {
			s.Error = ErrLoad
			return
		}
		s.Notes = notes
		s.Error = ""
	})
	if err != nil {
		m.logger.Warn("notes: refetch failed", slog.String("error", err.Error()))
	}
	return err
}

// Create stores a new note and returns it, or nil on failure. The collection
// is refreshed in the background.
func (m *Manager) Create(ctx context.Context, title, content string) *models.Note {
	note, err := m.store.Create(ctx, title, content)
	if err != nil {
		m.logger.Warn("notes: create failed", slog.String("error", err.Error()))
		m.update(func(s *State) { s.Error = ErrCreate })
		return nil
	}
	m.refetchInBackground(ctx)
	return &note
}

// Update saves title and content of note id. The error is returned so the
// caller can react to it.
func (m *Manager) Update(ctx context.Context, id, title, content string) error {
	if _, err := m.store.Update(ctx, id, title, content); err != nil {
		m.logger.Warn("notes: update failed", slog.String("id", id), slog.String("error", err.Error()))
		m.update(func(s *State) { s.Error = ErrUpdate })
		return err
	}
	m.update(func(s *State) { s.Error = "" })
	m.refetchInBackground(ctx)
	return nil
}

// Delete removes note id. On failure the collection is left unchanged and
// the error is returned.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Warn("notes: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		m.update(func(s *State) { s.Error = ErrDelete })
		return err
	}
	m.update(func(s *State) { s.Error = "" })
	m.refetchInBackground(ctx)
	return nil
}

// Get fetches one note, or returns nil on failure.
func (m *Manager) Get(ctx context.Context, id string) *models.Note {
	note, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Warn("notes: get failed", slog.String("id", id), slog.String("error", err.Error()))
		m.update(func(s *State) { s.Error = ErrFetch })
		return nil
	}
	return &note
}

// refetchInBackground refreshes the collection without blocking the caller.
// The request outlives the caller's context cancellation.
func (m *Manager) refetchInBackground(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		_ = m.Refetch(detached)
	}()
}

func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snap := m.snapshotLocked()
	subs := make([]func(State), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	s.Notes = append([]models.Note(nil), m.state.Notes...)
	if s.Notes == nil {
		s.Notes = []models.Note{}
	}
	return s
}
