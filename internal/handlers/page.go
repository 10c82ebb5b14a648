package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/internal/store"
	"github.com/keepsite/apiserver/types"
	"github.com/rs/zerolog"
)

// PageHandler provides HTTP handlers for CMS pages.
type PageHandler struct {
	pageService *services.PageService
	logger      zerolog.Logger
}

// NewPageHandler constructs a handler with the provided service.
func NewPageHandler(pageService *services.PageService, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		pageService: pageService,
		logger:      logger,
	}
}

// PublicPageRouter registers the unauthenticated page routes.
func PublicPageRouter(r chi.Router, pageService *services.PageService, logger zerolog.Logger) {
	handler := NewPageHandler(pageService, logger)

	r.Get("/homepage", handler.GetHomepage)
	r.Get("/pages", handler.ListPublicPages)
	r.Get("/page/{pageID}", handler.GetPublicPage)
}

// AdminPageRouter registers the token-protected page routes. The auth
// middleware is applied by the caller on the whole admin group.
func AdminPageRouter(r chi.Router, pageService *services.PageService, logger zerolog.Logger) {
	handler := NewPageHandler(pageService, logger)

	r.Get("/pages", handler.ListPages)
	r.Post("/pages/reorder", handler.ReorderPages)
	r.Post("/page", handler.CreatePage)
	r.Route("/page/{pageID}", func(r chi.Router) {
		r.Get("/", handler.GetPage)
		r.Put("/", handler.UpdatePage)
		r.Patch("/", handler.PatchPage)
		r.Delete("/", handler.DeletePage)
	})
}

func (h *PageHandler) GetHomepage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageService.GetHomepage(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "homepage not found")
			return
		}
		h.logger.Error().Err(err).Msg("fetch homepage")
		writeError(w, http.StatusInternalServerError, "failed to fetch homepage")
		return
	}
	writeJSON(w, http.StatusOK, types.PublicPage{Title: page.Title, Content: page.Content})
}

func (h *PageHandler) ListPublicPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pageService.ListPublic(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list pages")
		writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (h *PageHandler) GetPublicPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	page, err := h.pageService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("fetch page")
		writeError(w, http.StatusInternalServerError, "failed to fetch page")
		return
	}
	writeJSON(w, http.StatusOK, types.PublicPage{Title: page.Title, Content: page.Content})
}

func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pageService.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list pages")
		writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

// PageUpsertRequest is the create/full-replace payload.
type PageUpsertRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Slug     string `json:"slug"`
	Homepage bool   `json:"homepage"`
	Position int    `json:"position"`
}

func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req PageUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.pageService.Create(r.Context(), types.Page{
		Title:    req.Title,
		Content:  req.Content,
		Slug:     req.Slug,
		Homepage: req.Homepage,
		Position: req.Position,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create page")
		writeError(w, http.StatusInternalServerError, "failed to create page")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	page, err := h.pageService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("fetch page")
		writeError(w, http.StatusInternalServerError, "failed to fetch page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	var req PageUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.pageService.Update(r.Context(), types.Page{
		ID:       id,
		Title:    req.Title,
		Content:  req.Content,
		Slug:     req.Slug,
		Homepage: req.Homepage,
		Position: req.Position,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("update page")
		writeError(w, http.StatusInternalServerError, "failed to update page")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PageHandler) PatchPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	fields, err := parsePagePatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.pageService.Patch(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		if errors.Is(err, store.ErrUnknownField) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("patch page")
		writeError(w, http.StatusInternalServerError, "failed to update page")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	if err := h.pageService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("delete page")
		writeError(w, http.StatusInternalServerError, "failed to delete page")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "page deleted"})
}

// ReorderRequest wraps the ordered id sequence. A bare JSON array is
// also accepted.
type ReorderRequest struct {
	Order *[]int `json:"order"`
}

func (h *PageHandler) ReorderPages(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	orderedIDs, err := parseReorderPayload(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pageService.Reorder(r.Context(), orderedIDs); err != nil {
		h.logger.Error().Err(err).Msg("reorder pages")
		writeError(w, http.StatusInternalServerError, "failed to reorder pages")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "pages reordered"})
}

func parseReorderPayload(raw json.RawMessage) ([]int, error) {
	var ids []int
	if err := json.Unmarshal(raw, &ids); err == nil && ids != nil {
		return ids, nil
	}

	var wrapped ReorderRequest
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Order != nil {
		return *wrapped.Order, nil
	}

	return nil, errors.New("payload must be a sequence of page ids")
}

// parsePagePatch decodes a partial update into typed column values.
// Only allow-listed fields are accepted, and each must carry a value of
// the right type; anything else is a validation error.
func parsePagePatch(r *http.Request) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.New("invalid request")
	}

	fields := make(map[string]any, len(raw))
	for key, value := range raw {
		switch key {
		case "title", "content", "slug":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("field %s must be a string", key)
			}
			fields[key] = s
		case "homepage":
			var b bool
			if err := json.Unmarshal(value, &b); err != nil {
				return nil, errors.New("field homepage must be a boolean")
			}
			fields[key] = b
		case "position":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return nil, errors.New("field position must be an integer")
			}
			fields[key] = n
		default:
			return nil, fmt.Errorf("unknown field %s", key)
		}
	}
	return fields, nil
}
