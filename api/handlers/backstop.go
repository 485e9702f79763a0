package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openalpha/clearing-core/api/types"
)

// BackstopHandler handles backstop LP pool HTTP requests
type BackstopHandler struct {
	service types.BackstopService
}

// NewBackstopHandler creates a new backstop handler
func NewBackstopHandler(service types.BackstopService) *BackstopHandler {
	return &BackstopHandler{service: service}
}

// HandlePools handles GET /v1/backstop/pools
func (h *BackstopHandler) HandlePools(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	pools, err := h.service.ListPools(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_pools_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"pools": pools})
}

// HandlePool handles GET /v1/backstop/pools/{poolId}
func (h *BackstopHandler) HandlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/backstop/pools/")
	poolID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pool_id", "numeric pool id is required")
		return
	}

	pool, err := h.service.GetPool(r.Context(), poolID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "pool_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_pool_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"pool": pool})
}

// HandleWithdrawal handles GET /v1/backstop/withdrawals/{id}
func (h *BackstopHandler) HandleWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/backstop/withdrawals/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_withdrawal_id", "withdrawal id is required")
		return
	}

	withdrawal, err := h.service.GetWithdrawal(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "withdrawal_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_withdrawal_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"withdrawal": withdrawal})
}
