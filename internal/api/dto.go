package api

import "github.com/starford/quire/internal/noteservice"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"<p>milk</p>"`
}

// UpdateNoteRequest is the request body for updating a note. Omitted fields are left untouched.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty" example:"Groceries"`
	Content *string `json:"content,omitempty" example:"<p>milk, eggs</p>"`
}

// SignupRequest is the request body for creating an account.
type SignupRequest = noteservice.Credentials

// TokenResponse is returned by signup and login.
type TokenResponse = noteservice.Token

// NoteDetail is the note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// AccountResponse is returned by GET /auth/me.
type AccountResponse struct {
	ID    string `json:"id" example:"6f1c..."`
	Email string `json:"email" example:"me@example.com"`
}

// MessageResponse is returned by endpoints without a resource payload.
type MessageResponse struct {
	Message string `json:"message" example:"Note deleted successfully"`
}
