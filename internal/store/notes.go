package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// MaxListLimit caps the number of notes a single list query returns.
const MaxListLimit = 100

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotePatch carries the fields of a partial update. Nil fields are left untouched.
type NotePatch struct {
	Title   *string
	Content *string
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil
}

// ListParams filters and orders a list query.
type ListParams struct {
	Search string
	Sort   models.SortOption
	Limit  int
}

// CreateNote inserts a new note owned by ownerID.
func (db *DB) CreateNote(ctx context.Context, ownerID, title, content string) (*NoteRow, error) {
	now := db.now()
	row := NoteRow{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, row.ID, row.OwnerID, row.Title, row.Content, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	if err := ftsUpsert(tx, row.ID, row.Title, row.Content); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return &row, nil
}

// GetNote returns the note with id if it belongs to ownerID.
func (db *DB) GetNote(ctx context.Context, ownerID, id string) (*NoteRow, error) {
	var r NoteRow
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, owner_id, title, content, created_at, updated_at
		FROM notes
		WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&r.ID, &r.OwnerID, &r.Title, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return &r, nil
}

// UpdateNote applies patch to the note and bumps updated_at.
func (db *DB) UpdateNote(ctx context.Context, ownerID, id string, patch NotePatch) (*NoteRow, error) {
	existing, err := db.GetNote(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Content != nil {
		existing.Content = *patch.Content
	}
	existing.UpdatedAt = db.now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, existing.Title, existing.Content, existing.UpdatedAt, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: update note: %w", err)
	}
	if err := ftsUpsert(tx, existing.ID, existing.Title, existing.Content); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return existing, nil
}

// DeleteNote removes the note and its search entry.
func (db *DB) DeleteNote(ctx context.Context, ownerID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

// ListNotes returns the owner's notes filtered by params.Search and ordered by params.Sort.
// An empty sort keeps insertion order.
func (db *DB) ListNotes(ctx context.Context, ownerID string, params ListParams) ([]NoteRow, error) {
	limit := params.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if q := strings.TrimSpace(params.Search); q != "" {
		clause, clauseArgs := searchClause(q)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}
	args = append(args, limit)

	query := `
		SELECT id, owner_id, title, content, created_at, updated_at
		FROM notes
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy(params.Sort) + `
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Title, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func orderBy(sort models.SortOption) string {
	switch sort {
	case models.SortNewest:
		return "updated_at DESC, rowid DESC"
	case models.SortOldest:
		return "updated_at ASC, rowid ASC"
	case models.SortTitle:
		return "title COLLATE NOCASE ASC, rowid ASC"
	default:
		return "rowid ASC"
	}
}

// likePattern escapes LIKE wildcards so the query matches as a plain substring.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
