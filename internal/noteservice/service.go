// Package noteservice implements owner-scoped note and account operations
// on top of the store.
package noteservice

import (
	"context"
	"errors"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

// Change kinds reported to the ChangeFunc.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ErrNoFields is returned by UpdateNote when the patch changes nothing.
var ErrNoFields = errors.New("no fields to update")

// ChangeFunc is called after every successful mutation.
type ChangeFunc func(ownerID, kind, noteID string)

// NoteDetail is the wire representation of a note. The identifier is
// serialized as "_id", matching the document-store shape clients expect.
type NoteDetail struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates note persistence and change notification.
type Service struct {
	notes    store.NoteStore
	onChange ChangeFunc
}

// NewService creates a new note service. onChange may be nil.
func NewService(notes store.NoteStore, onChange ChangeFunc) *Service {
	return &Service{notes: notes, onChange: onChange}
}

// GetNote returns one of the owner's notes.
func (s *Service) GetNote(ctx context.Context, ownerID, id string) (*NoteDetail, error) {
	row, err := s.notes.GetNote(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return toDetail(row), nil
}

// CreateNote stores a new note for the owner.
func (s *Service) CreateNote(ctx context.Context, ownerID, title, content string) (*NoteDetail, error) {
	row, err := s.notes.CreateNote(ctx, ownerID, title, content)
	if err != nil {
		return nil, err
	}
	s.notify(ownerID, ChangeCreated, row.ID)
	return toDetail(row), nil
}

// UpdateNote applies a partial update. An empty patch fails with ErrNoFields.
func (s *Service) UpdateNote(ctx context.Context, ownerID, id string, patch store.NotePatch) (*NoteDetail, error) {
	if patch.Empty() {
		return nil, ErrNoFields
	}
	row, err := s.notes.UpdateNote(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	s.notify(ownerID, ChangeUpdated, row.ID)
	return toDetail(row), nil
}

// DeleteNote removes one of the owner's notes.
func (s *Service) DeleteNote(ctx context.Context, ownerID, id string) error {
	if err := s.notes.DeleteNote(ctx, ownerID, id); err != nil {
		return err
	}
	s.notify(ownerID, ChangeDeleted, id)
	return nil
}

// ListNotes returns the owner's notes filtered by search and ordered by sort.
func (s *Service) ListNotes(ctx context.Context, ownerID, search string, sort models.SortOption) ([]NoteDetail, error) {
	rows, err := s.notes.ListNotes(ctx, ownerID, store.ListParams{Search: search, Sort: sort})
	if err != nil {
		return nil, err
	}
	items := make([]NoteDetail, len(rows))
	for i := range rows {
		items[i] = *toDetail(&rows[i])
	}
	return items, nil
}

func (s *Service) notify(ownerID, kind, id string) {
	if s.onChange != nil {
		s.onChange(ownerID, kind, id)
	}
}

func toDetail(r *store.NoteRow) *NoteDetail {
	return &NoteDetail{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
