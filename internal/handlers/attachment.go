package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/keepsite/apiserver/internal/services"
	"github.com/keepsite/apiserver/internal/store"
	"github.com/rs/zerolog"
)

const (
	maxAttachmentMemory = 8 << 20
	maxAttachmentBytes  = 32 << 20
	formFieldFile       = "file"
)

// AttachmentHandler provides HTTP handlers for page attachments.
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	logger            zerolog.Logger
}

// NewAttachmentHandler constructs a handler with the provided service.
func NewAttachmentHandler(attachmentService *services.AttachmentService, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

// AdminAttachmentRouter registers the token-protected attachment
// routes.
func AdminAttachmentRouter(r chi.Router, attachmentService *services.AttachmentService, logger zerolog.Logger) {
	handler := NewAttachmentHandler(attachmentService, logger)

	r.Route("/page/{pageID}/attachments", func(r chi.Router) {
		r.Get("/", handler.ListAttachments)
		r.Post("/", handler.UploadAttachment)
	})
	r.Delete("/attachment/{attachmentID}", handler.DeleteAttachment)
}

// PublicAttachmentRouter registers the public download route.
func PublicAttachmentRouter(r chi.Router, attachmentService *services.AttachmentService, logger zerolog.Logger) {
	handler := NewAttachmentHandler(attachmentService, logger)

	r.Get("/attachment/{attachmentID}", handler.DownloadAttachment)
}

func (h *AttachmentHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	pageID, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	attachments, err := h.attachmentService.ListByPage(r.Context(), pageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("page_id", pageID).Msg("list attachments")
		writeError(w, http.StatusInternalServerError, "failed to list attachments")
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (h *AttachmentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	pageID, err := parseIDParam(r, "pageID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := h.attachmentService.Upload(r.Context(), pageID, header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error().Err(err).Int("page_id", pageID).Msg("upload attachment")
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusCreated, attachment)
}

func (h *AttachmentHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	attachment, reader, err := h.attachmentService.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("open attachment")
		writeError(w, http.StatusInternalServerError, "failed to fetch attachment")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", attachment.Filename))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn().Err(err).Int("id", id).Msg("stream attachment")
	}
}

func (h *AttachmentHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	if err := h.attachmentService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		h.logger.Error().Err(err).Int("id", id).Msg("delete attachment")
		writeError(w, http.StatusInternalServerError, "failed to delete attachment")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "attachment deleted"})
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
