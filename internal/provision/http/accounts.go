package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/httpx"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

type AccountsHandler struct {
	Accounts AccountSource
	Store    store.CredentialStore
	Gate     *service.Gate
	Runs     *service.RunService
	Inbox    *inbox.Reader // nil disables mailbox reads
	Now      func() time.Time
}

type ListAccountsResponse struct {
	Accounts []service.AccountStatus `json:"accounts"`
}

type ProvisionRequest struct {
	Label string `json:"label,omitempty"`
}

// HandleList classifies every account in the accounts file.
//
//	@Summary		List accounts
//	@Description	Classifies every account in the accounts file from the credential store. Requires provision:read scope.
//	@Tags			Accounts
//	@Produce		json
//	@Success		200	{object}	ListAccountsResponse	"Accounts with their status"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Accounts file unreadable"
//	@Security		BearerAuth
//	@Router			/v1/accounts [get].
func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, ok := loadAccounts(w, r, h.Accounts)
	if !ok {
		return
	}

	statuses := h.Gate.ClassifyAll(ctx, accounts)
	if statuses == nil {
		statuses = []service.AccountStatus{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListAccountsResponse{Accounts: statuses})
}

// HandleProvision runs a single account synchronously and returns its result.
//
//	@Summary		Provision one account
//	@Description	Runs the provisioning state machine for one account and waits for the result. Requires provision:run scope.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Account identifier"
//	@Param			request	body	ProvisionRequest	false	"App password label"
//	@Success		200	{object}	domain.JobResult	"Job result, including failures"
//	@Failure		400	{object}	httpx.ErrorResponse	"Malformed JSON body"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		404	{object}	httpx.ErrorResponse	"Account is not in the accounts file"
//	@Failure		409	{object}	httpx.ErrorResponse	"Another run is in progress"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id}/provision [post].
func (h *AccountsHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	acct, ok := h.findAccount(w, r)
	if !ok {
		return
	}

	res, err := h.Runs.RunSingle(ctx, acct, req.Label)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			httpx.WriteError(w, http.StatusConflict, "run_in_progress", "Another run is in progress")
			return
		}
		log.Error("single account run failed", "account", acct.Identifier, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to run account")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleTOTP returns the current code for an account with a stored secret.
//
//	@Summary		Current TOTP code
//	@Description	Returns the current one-time code for an account with a stored secret. Requires provision:read scope.
//	@Tags			Accounts
//	@Produce		json
//	@Param			id	path	string	true	"Account identifier"
//	@Success		200	{object}	service.Code	"Current code"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		404	{object}	httpx.ErrorResponse	"No TOTP secret stored for account"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id}/totp [get].
func (h *AccountsHandler) HandleTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id := r.PathValue("id")
	rec, ok, err := h.Store.Get(ctx, id)
	if err != nil {
		log.Error("failed to read credential store", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to read credential store")
		return
	}
	if !ok || !rec.HasTOTPSecret() {
		httpx.WriteError(w, http.StatusNotFound, "no_totp_secret", "No TOTP secret stored for account")
		return
	}

	code, err := service.GenerateCode(rec.TOTPSecret, h.Now())
	if err != nil {
		log.Error("failed to generate totp code", "account", id, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Stored TOTP secret is invalid")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, code)
}

// HandleMessages reads the newest inbox messages for an account and returns
// any verification codes found in them.
//
//	@Summary		Read inbox messages
//	@Description	Signs in to the account mailbox with the stored app password, or the account password plus the current TOTP code, and returns the newest messages with any verification code found in each. Messages are not marked as read. Requires provision:read scope.
//	@Tags			Accounts
//	@Produce		json
//	@Param			id	path	string	true	"Account identifier"
//	@Param			limit	query	int	false	"Number of messages (default 5, max 50)"
//	@Param			unread	query	bool	false	"Only unread messages"
//	@Success		200	{object}	inbox.Result	"Newest messages first"
//	@Failure		400	{object}	httpx.ErrorResponse	"Invalid query parameters"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		404	{object}	httpx.ErrorResponse	"Account is not in the accounts file"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		501	{object}	httpx.ErrorResponse	"Mailbox reading is not configured"
//	@Failure		502	{object}	httpx.ErrorResponse	"Mailbox rejected credentials or is unreachable"
//	@Security		BearerAuth
//	@Router			/v1/accounts/{id}/messages [get].
func (h *AccountsHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if h.Inbox == nil {
		httpx.WriteError(w, http.StatusNotImplemented, "inbox_disabled", "Mailbox reading is not configured")
		return
	}

	var q inbox.Query
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unread must be a boolean")
			return
		}
		q.UnreadOnly = b
	}

	acct, ok := h.findAccount(w, r)
	if !ok {
		return
	}

	res, err := h.Inbox.Read(ctx, acct, q)
	switch {
	case err == nil:
	case errors.Is(err, inbox.ErrAuth):
		log.Warn("mailbox rejected credentials", "account", acct.Identifier, "error", err)
		httpx.WriteError(w, http.StatusBadGateway, "mailbox_auth_failed", "Mailbox rejected the stored credentials")
		return
	default:
		log.Error("failed to read mailbox", "account", acct.Identifier, "error", err)
		httpx.WriteError(w, http.StatusBadGateway, "mailbox_unavailable", "Failed to read mailbox")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AccountsHandler) findAccount(w http.ResponseWriter, r *http.Request) (domain.Account, bool) {
	accounts, ok := loadAccounts(w, r, h.Accounts)
	if !ok {
		return domain.Account{}, false
	}

	acct, found := domain.FindAccount(accounts, r.PathValue("id"))
	if !found {
		httpx.WriteError(w, http.StatusNotFound, "account_not_found", "Account is not in the accounts file")
		return domain.Account{}, false
	}
	return acct, true
}

func loadAccounts(w http.ResponseWriter, r *http.Request, source AccountSource) ([]domain.Account, bool) {
	accounts, err := source()
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to load accounts", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load accounts")
		return nil, false
	}
	return accounts, true
}
