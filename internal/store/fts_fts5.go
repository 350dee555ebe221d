//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			tokenize = 'trigram'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO notes_fts (id, title, content) VALUES (?, ?, ?)`, id, title, content)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
}

// searchClause matches q through the trigram index. Queries shorter than three
// characters cannot use trigrams and fall back to LIKE.
func searchClause(q string) (string, []any) {
	if len([]rune(q)) < 3 {
		p := likePattern(q)
		return `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`, []any{p, p}
	}
	phrase := `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
	return `id IN (SELECT id FROM notes_fts WHERE notes_fts MATCH ?)`, []any{phrase}
}
