package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/internal/store"
	"github.com/keepsite/apiserver/types"
	"github.com/rs/zerolog"
)

// NoteHandler provides HTTP handlers for notes. All note routes are
// public.
type NoteHandler struct {
	noteService *services.NoteService
	logger      zerolog.Logger
}

// NewNoteHandler constructs a handler with the provided service.
func NewNoteHandler(noteService *services.NoteService, logger zerolog.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger,
	}
}

// NoteRouter registers the note routes on the given router.
func NoteRouter(r chi.Router, noteService *services.NoteService, logger zerolog.Logger) {
	handler := NewNoteHandler(noteService, logger)

	r.Get("/notes", handler.ListNotes)
	r.Post("/note", handler.CreateNote)
	r.Route("/note/{noteID}", func(r chi.Router) {
		r.Get("/", handler.GetNote)
		r.Put("/", handler.UpdateNote)
		r.Patch("/", handler.PatchNote)
		r.Delete("/", handler.DeleteNote)
	})
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteService.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list notes")
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "noteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	note, err := h.noteService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("fetch note")
		writeError(w, http.StatusInternalServerError, "failed to fetch note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// NoteUpsertRequest is the create/full-replace payload.
type NoteUpsertRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NotePatchRequest carries only the fields present in the payload.
type NotePatchRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.noteService.Create(r.Context(), types.Note{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create note")
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "noteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	var req NoteUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.noteService.Update(r.Context(), types.Note{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("update note")
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *NoteHandler) PatchNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "noteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	var req NotePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.noteService.Patch(r.Context(), id, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("patch note")
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "noteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	if err := h.noteService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("delete note")
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "note deleted"})
}
