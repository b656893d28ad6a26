package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

type MediaHandler struct {
	mediaService *service.MediaService
	maxBytes     int64
}

func NewMediaHandler(mediaService *service.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		maxBytes:     maxBytes,
	}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, apperr.Validation("upload exceeds the size limit"))
			return
		}
		writeError(w, r, apperr.Validation("invalid multipart form"))
		return
	}
	defer func() {
		removeErr := r.MultipartForm.RemoveAll()
		if removeErr != nil {
			slog.Warn("failed to remove multipart temp files", "error", removeErr)
		}
	}()

	media, err := h.mediaService.Upload(r.Context(), user.ID, r.FormValue("group_id"), r.MultipartForm.File["files"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"media": media})
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	media, err := h.mediaService.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"media": media})
}

type reassignRequest struct {
	GroupID *string `json:"group_id"`
}

func (h *MediaHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req reassignRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	media, err := h.mediaService.Reassign(r.Context(), user.ID, r.PathValue("id"), req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.mediaService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
