package handler

import "net/http"

// PageHandler serves the static pages.
type PageHandler struct {
	pages *Renderer
}

func NewPageHandler(pages *Renderer) *PageHandler {
	return &PageHandler{pages: pages}
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "home.html", nil)
}

// NotFound answers every path no other route matched.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.pages.NotFound(w, r)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
