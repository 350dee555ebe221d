package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/quire/internal/models"
)

// wireNote accepts both identifier spellings and both timestamp spellings the
// service has used.
type wireNote struct {
	ID         json.RawMessage `json:"id"`
	AltID      json.RawMessage `json:"_id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	CreatedAt  *time.Time      `json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at"`
	CreatedAlt *time.Time      `json:"createdAt"`
	UpdatedAlt *time.Time      `json:"updatedAt"`
}

// NormalizeNote decodes one note payload. The identifier is taken from "id",
// falling back to "_id". A payload with neither decodes with an empty ID.
func NormalizeNote(raw []byte) (models.Note, error) {
	var w wireNote
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Note{}, err
	}

	id, err := idString(w.ID)
	if err != nil {
		return models.Note{}, fmt.Errorf("id: %w", err)
	}
	if id == "" {
		if id, err = idString(w.AltID); err != nil {
			return models.Note{}, fmt.Errorf("_id: %w", err)
		}
	}

	n := models.Note{
		ID:        id,
		Title:     w.Title,
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if n.CreatedAt == nil {
		n.CreatedAt = w.CreatedAlt
	}
	if n.UpdatedAt == nil {
		n.UpdatedAt = w.UpdatedAlt
	}
	return n, nil
}

// NormalizeList decodes a list payload. Anything other than a JSON array
// yields an empty list.
func NormalizeList(raw []byte) ([]models.Note, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			return nil, fmt.Errorf("invalid JSON")
		}
		return []models.Note{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(items))
	for i, item := range items {
		n, err := NormalizeNote(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func idString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("unsupported identifier %s", raw)
	}
	return num.String(), nil
}
