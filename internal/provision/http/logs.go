package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/provision/pkg/httpx"
	"github.com/aussiebroadwan/provision/pkg/logring"
)

type LogsResponse struct {
	Entries []logring.Entry `json:"entries"`
	// Offset is the newest sequence number; pass it back as since to poll.
	Offset uint64 `json:"offset"`
}

// LogsHandler serves the rolling log. ?since=N returns entries after N.
//
//	@Summary		Rolling log
//	@Description	Returns the most recent log entries. Pass the returned offset back as since to poll for new entries. Requires provision:read scope.
//	@Tags			Logs
//	@Produce		json
//	@Param			since	query	int	false	"Return entries after this sequence number"
//	@Success		200	{object}	LogsResponse	"Log entries"
//	@Failure		400	{object}	httpx.ErrorResponse	"Invalid since"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Security		BearerAuth
//	@Router			/v1/logs [get].
func LogsHandler(ring *logring.Ring) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since uint64
		if raw := r.URL.Query().Get("since"); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "since must be a non-negative integer")
				return
			}
			since = n
		}

		entries := ring.Since(since)
		if entries == nil {
			entries = []logring.Entry{}
		}

		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, LogsResponse{
			Entries: entries,
			Offset:  ring.Offset(),
		})
	}
}
