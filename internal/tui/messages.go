package tui

import (
	"time"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/workspace"
)

// stateMsg carries a fresh collection snapshot.
type stateMsg notes.State

// collectionMsg reports that the manager's state changed. The model reads
// the current snapshot when handling it, so late deliveries are harmless.
type collectionMsg struct{}

// createdMsg reports the outcome of the create command. note is nil on failure.
type createdMsg struct {
	note *models.Note
}

// deletedMsg reports the outcome of the delete command.
type deletedMsg struct {
	id  string
	err error
}

// statusMsg is sent by the editor session of note id.
type statusMsg struct {
	id     string
	status editor.Status
}

type noticeMsg workspace.Notice

type clearToastMsg struct {
	seq int
}

// changedMsg asks for a redraw after a workspace marker changed.
type changedMsg struct{}

// refreshMsg asks for a refetch, e.g. after the credentials changed.
type refreshMsg struct{}

type tickMsg time.Time
