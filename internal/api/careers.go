package api

import (
	"net/http"

	"github.com/regform/regform/internal/careers"
)

func (h *handler) handleCareers(w http.ResponseWriter, r *http.Request) {
	listing := h.deps.Careers.Listing(r.Context())
	body, err := careers.Render(listing)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.writePage(w, r, http.StatusOK, "careers", pageData{Title: "Careers", Body: body}, nil)
}

// handleCareersRefresh drops the cached listing so the next /careers/ view
// fetches the board again.
func (h *handler) handleCareersRefresh(w http.ResponseWriter, r *http.Request) {
	h.deps.Careers.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
