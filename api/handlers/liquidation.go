package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openalpha/clearing-core/api/types"
)

// LiquidationHandler handles liquidation engine HTTP requests
type LiquidationHandler struct {
	service types.LiquidationService
}

// NewLiquidationHandler creates a new liquidation handler
func NewLiquidationHandler(service types.LiquidationService) *LiquidationHandler {
	return &LiquidationHandler{service: service}
}

// HandleQueue handles GET /v1/liquidations/queue?account_id=N&token=T
func (h *LiquidationHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
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

	queue, err := h.service.GetQueue(r.Context(), accountID, token)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "empty") {
			writeError(w, http.StatusNotFound, "queue_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_queue_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"queue": queue})
}

// HandleInsuranceFund handles GET /v1/liquidations/insurance?pool_id=N&token=T
func (h *LiquidationHandler) HandleInsuranceFund(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	poolID, err := strconv.ParseUint(r.URL.Query().Get("pool_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_pool_id", "numeric pool_id is required")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	fund, err := h.service.GetInsuranceFund(r.Context(), poolID, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_insurance_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"insurance_fund": fund})
}

// HandleHistory handles GET /v1/liquidations?token=T&limit=N
func (h *LiquidationHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	token := r.URL.Query().Get("token")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.service.ListLiquidations(r.Context(), token, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_liquidations_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"liquidations": events})
}
