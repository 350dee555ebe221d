//go:build !sqlite_fts5

package store

import "database/sql"

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the notes table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Title and content already live in the notes table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// searchClause matches q as a case-insensitive substring of title or content.
func searchClause(q string) (string, []any) {
	p := likePattern(q)
	return `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`, []any{p, p}
}
