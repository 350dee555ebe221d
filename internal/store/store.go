package store

import (
	"context"

	"github.com/starford/quire/internal/models"
)

// NoteStore defines the persistence operations used by the note service.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteStore interface {
	CreateNote(ctx context.Context, ownerID, title, content string) (*NoteRow, error)
	GetNote(ctx context.Context, ownerID, id string) (*NoteRow, error)
	UpdateNote(ctx context.Context, ownerID, id string, patch NotePatch) (*NoteRow, error)
	DeleteNote(ctx context.Context, ownerID, id string) error
	ListNotes(ctx context.Context, ownerID string, params ListParams) ([]NoteRow, error)
}

// UserStore defines the account persistence operations used by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ NoteStore = (*DB)(nil)
	_ UserStore = (*DB)(nil)
)
