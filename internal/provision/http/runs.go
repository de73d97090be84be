package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/httpx"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

type RunsHandler struct {
	Accounts    AccountSource
	Runs        *service.RunService
	BaseContext context.Context
}

type StartRunResponse struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}

type ListRunsResponse struct {
	Runs []domain.RunSummary `json:"runs"`
}

// HandleStart starts a batch over every account in the background.
//
//	@Summary		Start a batch run
//	@Description	Provisions every account in the accounts file in the background. Poll /v1/runs/current for progress. Requires provision:run scope.
//	@Tags			Runs
//	@Produce		json
//	@Success		202	{object}	StartRunResponse	"Run started"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		409	{object}	httpx.ErrorResponse	"Another run is in progress"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Security		BearerAuth
//	@Router			/v1/runs [post].
func (h *RunsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accounts, ok := loadAccounts(w, r, h.Accounts)
	if !ok {
		return
	}

	// The run outlives this request but keeps its logger.
	runCtx := slogx.WithContext(h.BaseContext, log)
	runID, err := h.Runs.StartBatch(runCtx, accounts)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			httpx.WriteError(w, http.StatusConflict, "run_in_progress", "Another run is in progress")
			return
		}
		log.Error("failed to start batch", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to start run")
		return
	}

	log.Info("batch run started", "run_id", runID, "accounts", len(accounts))
	httpx.WriteJSON(w, http.StatusAccepted, StartRunResponse{RunID: runID, Total: len(accounts)})
}

// HandleCurrent returns live progress of the current or last run.
//
//	@Summary		Current run progress
//	@Description	Returns live progress of the active run, or the report of the last one. Requires provision:read scope.
//	@Tags			Runs
//	@Produce		json
//	@Success		200	{object}	service.RunState	"Run progress"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Security		BearerAuth
//	@Router			/v1/runs/current [get].
func (h *RunsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.Runs.State())
}

// HandleList returns recent runs, newest first.
//
//	@Summary		List runs
//	@Description	Returns recorded runs, newest first. Requires provision:read scope.
//	@Tags			Runs
//	@Produce		json
//	@Param			limit	query	int	false	"Maximum number of runs"
//	@Success		200	{object}	ListRunsResponse	"Recorded runs"
//	@Failure		400	{object}	httpx.ErrorResponse	"Invalid limit"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Failure		501	{object}	httpx.ErrorResponse	"Run history is not configured"
//	@Security		BearerAuth
//	@Router			/v1/runs [get].
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListRuns(ctx, limit)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListRunsResponse{Runs: runs})
}

// HandleGet returns one run with its per-account results.
//
//	@Summary		Get a run
//	@Description	Returns one recorded run with its per-account results. Requires provision:read scope.
//	@Tags			Runs
//	@Produce		json
//	@Param			id	path	string	true	"Run ID"
//	@Success		200	{object}	domain.RunDetail	"Run with results"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		404	{object}	httpx.ErrorResponse	"Run not found"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Failure		501	{object}	httpx.ErrorResponse	"Run history is not configured"
//	@Security		BearerAuth
//	@Router			/v1/runs/{id} [get].
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.Runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, run)
}

func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNoLedger):
		httpx.WriteError(w, http.StatusNotImplemented, "ledger_disabled", "Run history is not configured")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "run_not_found", "Run not found")
	default:
		slogx.FromContext(r.Context()).Error("failed to read run history", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to read run history")
	}
}
