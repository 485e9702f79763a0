package handlers

import (
	"net/http"
	"strings"

	"github.com/openalpha/clearing-core/api/types"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	service types.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service types.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// HandleAccount handles GET /v1/account?account_id=N
func (h *AccountHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getAccount(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

// HandleOwnerAccounts handles GET /v1/accounts?owner=addr
func (h *AccountHandler) HandleOwnerAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = r.Header.Get("X-Owner-Address")
	}
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing_owner", "owner address is required")
		return
	}

	accounts, err := h.service.GetAccountsByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_accounts_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// getAccount handles GET /v1/account
func (h *AccountHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := parseAccountID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_account_id", "numeric account_id is required")
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "account_not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_account_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"account": account})
}
