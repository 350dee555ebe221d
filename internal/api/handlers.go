package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/store"
)

// Handler holds the note route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /notes/.
//
//	@Summary		List the caller's notes
//	@Tags			notes
//	@Produce		json
//	@Param			search_query	query		string	false	"Case-insensitive substring over title and content"
//	@Param			sort_by			query		string	false	"Sort order"	Enums(newest, oldest, title)
//	@Success		200				{array}		NoteDetail
//	@Security		BearerAuth
//	@Router			/notes/ [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := UserFrom(r.Context())

	// Unknown sort values keep insertion order rather than failing the request.
	sort := models.SortOption(q.Get("sort_by"))
	items, err := h.svc.ListNotes(r.Context(), user.ID, q.Get("search_query"), sort)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []noteservice.NoteDetail{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetNote handles GET /notes/{id}/.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/ [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), UserFrom(r.Context()).ID, id)
	if err != nil {
		h.writeNoteError(w, "get note failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /notes/.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/ [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), UserFrom(r.Context()).ID, req.Title, req.Content)
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /notes/{id}/.
//
//	@Summary		Update a note's title and/or content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/ [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateNoteRequest
	if !readJSON(w, r, &req) {
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), UserFrom(r.Context()).ID, id, store.NotePatch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, noteservice.ErrNoFields) {
			writeJSON(w, http.StatusBadRequest, errorBody("No fields to update"))
			return
		}
		h.writeNoteError(w, "update note failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}/.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/ [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), UserFrom(r.Context()).ID, id); err != nil {
		h.writeNoteError(w, "delete note failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}

func (h *Handler) writeNoteError(w http.ResponseWriter, msg, id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("Note not found"))
		return
	}
	slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
