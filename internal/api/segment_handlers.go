package api

import (
	"encoding/json"
	"net/http"

	"github.com/lensdesk/lensdesk/internal/segment"
)

// PreviewSegment evaluates a segment definition without saving anything,
// returning the matching customer count and a small sample.
//
//	POST /api/segments/preview
func (h *Handlers) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var def segment.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "invalid segment definition")
		return
	}

	preview := h.evaluator.Preview(r.Context(), def)
	respondJSON(w, http.StatusOK, preview)
}
