//go:build sqlite_fts5

package store

import (
	"context"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchMatches(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "a@example.com")
	ctx := context.Background()

	_, _ = db.CreateNote(ctx, u.ID, "FTS Note", "Quire provides powerful full-text search.")
	_, _ = db.CreateNote(ctx, u.ID, "Other", "nothing here")

	rows, err := db.ListNotes(ctx, u.ID, ListParams{Search: "powerful"})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "FTS Note" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "a@example.com")
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, u.ID, "gone", "ephemeral text")
	if err := db.DeleteNote(ctx, u.ID, n.ID); err != nil {
		t.Fatal(err)
	}
	var count int
	_ = db.conn.QueryRow(`SELECT count(*) FROM notes_fts WHERE id = ?`, n.ID).Scan(&count)
	if count != 0 {
		t.Errorf("fts rows after delete = %d", count)
	}
}

func TestFTS5_UpdateReplacesContent(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "a@example.com")
	ctx := context.Background()

	n, _ := db.CreateNote(ctx, u.ID, "x", "alpha version")
	content := "bravo version"
	if _, err := db.UpdateNote(ctx, u.ID, n.ID, NotePatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	rows, _ := db.ListNotes(ctx, u.ID, ListParams{Search: "alpha"})
	if len(rows) != 0 {
		t.Errorf("stale content still matches: %+v", rows)
	}
	rows, _ = db.ListNotes(ctx, u.ID, ListParams{Search: "bravo"})
	if len(rows) != 1 {
		t.Errorf("new content not found")
	}
}
