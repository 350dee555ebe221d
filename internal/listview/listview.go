// Package listview turns the note collection into what the sidebar shows.
package listview

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/quire/internal/models"
)

// PreviewLength is the number of characters of plain text shown per note.
const PreviewLength = 100

var stripPolicy = bluemonday.StrictPolicy()

// blockBreaks puts a space in front of block-level tags so adjacent
// paragraphs don't run together once markup is stripped.
var blockBreaks = strings.NewReplacer(
	"<p", " <p",
	"<div", " <div",
	"<br", " <br",
	"<li", " <li",
	"<h", " <h",
	"<blockquote", " <blockquote",
	"<tr", " <tr",
	"<td", " <td",
)

// Derive returns the notes to display for searchQuery and sortBy. Both were
// already applied by the service, so the result is a copy of notes in server
// order.
func Derive(notes []models.Note, searchQuery string, sortBy models.SortOption) []models.Note {
	out := make([]models.Note, len(notes))
	copy(out, notes)
	return out
}

// Row is one rendered sidebar entry.
type Row struct {
	ID       string
	Title    string
	Preview  string
	Updated  string
	Selected bool
}

// Rows renders notes relative to now.
func Rows(notes []models.Note, selectedID string, now time.Time) []Row {
	rows := make([]Row, len(notes))
	for i, n := range notes {
		rows[i] = Row{
			ID:       n.ID,
			Title:    n.Title,
			Preview:  Preview(n.Content),
			Updated:  Updated(n.UpdatedAt, now),
			Selected: selectedID != "" && n.ID == selectedID,
		}
	}
	return rows
}

// Preview strips markup from content and truncates it to PreviewLength
// characters, appending "..." when cut.
func Preview(content string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(blockBreaks.Replace(content)))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength]) + "..."
}

// Updated is the relative modification time ("3 minutes ago"), or "" when
// unknown.
func Updated(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

// EmptyMessage is shown instead of the list when there is nothing to display.
func EmptyMessage(searchQuery string) string {
	if searchQuery != "" {
		return "No notes found"
	}
	return "No notes yet"
}

// StatusLine summarises the collection, e.g. "12 notes total • 3 shown".
func StatusLine(total, shown int, searchQuery string) string {
	noun := "notes"
	if total == 1 {
		noun = "note"
	}
	line := fmt.Sprintf("%d %s total", total, noun)
	if searchQuery != "" {
		line += fmt.Sprintf(" • %d shown", shown)
	}
	return line
}
