package handler

import (
	"net/http"

	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/service"
)

type LinkHandler struct {
	linkService     *service.LinkService
	playbackService *service.PlaybackService
}

func NewLinkHandler(linkService *service.LinkService, playbackService *service.PlaybackService) *LinkHandler {
	return &LinkHandler{
		linkService:     linkService,
		playbackService: playbackService,
	}
}

type generateLinkRequest struct {
	GroupID string `json:"group_id"`
}

func (h *LinkHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req generateLinkRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	link, err := h.linkService.Generate(r.Context(), user.ID, req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	links, err := h.linkService.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.linkService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Content is the public playback endpoint a display polls with its code.
func (h *LinkHandler) Content(w http.ResponseWriter, r *http.Request) {
	content, err := h.playbackService.Resolve(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, content)
}
