package handlers

import (
	"net/http"
	"strings"

	"github.com/openalpha/clearing-core/api/types"
)

// MarginHandler handles margin-related HTTP requests
type MarginHandler struct {
	service types.MarginService
}

// NewMarginHandler creates a new margin handler
func NewMarginHandler(service types.MarginService) *MarginHandler {
	return &MarginHandler{service: service}
}

// HandleMarginInfo handles GET /v1/margin?account_id=N&token=T
func (h *MarginHandler) HandleMarginInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	accountID, ok := parseAccountID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_account_id", "numeric account_id is required")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	info, err := h.service.GetMarginInfo(r.Context(), accountID, token)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "margin_info_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_margin_info_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"margin": info})
}

// HandleDeltas handles GET /v1/margin/deltas?account_id=N&token=T
func (h *MarginHandler) HandleDeltas(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	accountID, ok := parseAccountID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_account_id", "numeric account_id is required")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	deltas, err := h.service.GetRequirementDeltas(r.Context(), accountID, token)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "deltas_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_deltas_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deltas": deltas})
}
