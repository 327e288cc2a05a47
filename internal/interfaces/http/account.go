package http

import (
	"net/http"
	"strconv"

	"saverr/internal/domain/account"
	"saverr/internal/domain/sync"
	"saverr/internal/shared/apperr"
	"saverr/internal/shared/validation"
)

// AccountHandler exposes linked-account management plus the per-account
// transaction feed and sync trigger.
type AccountHandler struct {
	accounts *account.Service
	syncer   *sync.Engine
}

func NewAccountHandler(accounts *account.Service, syncer *sync.Engine) *AccountHandler {
	return &AccountHandler{accounts: accounts, syncer: syncer}
}

// HandleLinkToken issues a short-lived token for the client-side link flow.
func (h *AccountHandler) HandleLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	token, err := h.accounts.CreateLinkToken(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type linkRequest struct {
	PublicToken   string `json:"public_token"`
	InstitutionID string `json:"institution_id"`
}

// HandleAccounts serves the collection: POST links an institution, GET
// lists the user's accounts.
func (h *AccountHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req linkRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		result, err := h.accounts.Link(r.Context(), uid, req.PublicToken, req.InstitutionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	case http.MethodGet:
		accounts, err := h.accounts.List(r.Context(), uid)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	default:
		methodNotAllowed(w)
	}
}

// HandleAccountByID serves a single account: GET returns it, DELETE
// unlinks it.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	accountID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		acct, err := h.accounts.Get(r.Context(), uid, accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	case http.MethodDelete:
		if err := h.accounts.Unlink(r.Context(), uid, accountID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Account unlinked successfully"})
	default:
		methodNotAllowed(w)
	}
}

// HandleRefresh pulls the latest balance for one account.
func (h *AccountHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	result, err := h.accounts.Refresh(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type syncRequest struct {
	Mode string `json:"mode"`
	Days int    `json:"days"`
}

// HandleSync runs one sync cycle for an account. The body is optional;
// an empty body runs an incremental sync.
func (h *AccountHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req syncRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	params := sync.Params{Days: req.Days}
	switch req.Mode {
	case "", string(sync.ModeIncremental):
		params.Mode = sync.ModeIncremental
	case string(sync.ModeLegacyRange):
		params.Mode = sync.ModeLegacyRange
	default:
		writeError(w, apperr.Validation("mode must be incremental or legacy-range"))
		return
	}

	result, err := h.syncer.Sync(r.Context(), uid, r.PathValue("id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleTransactions returns a filtered page of one account's transactions.
func (h *AccountHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := account.TxnFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  validation.SanitizeString(q.Get("category"), 100),
	}

	var err error
	if filter.Limit, err = intQuery(q.Get("limit"), 0); err != nil {
		writeError(w, apperr.Validation("limit must be an integer"))
		return
	}
	if filter.Offset, err = intQuery(q.Get("offset"), 0); err != nil {
		writeError(w, apperr.Validation("offset must be an integer"))
		return
	}

	page, err := h.accounts.ListTransactions(r.Context(), uid, r.PathValue("id"), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func intQuery(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
