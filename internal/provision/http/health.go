package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/httpx"
)

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	CredentialStore string `json:"credential_store"`
	Ledger          string `json:"ledger"`
}

// LivezHandler always returns 200 OK while the process is serving.
//
//	@Summary		Liveness check
//	@Description	Always returns 200 while the process is serving.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"Process is up"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler checks the credential store is readable and the ledger, when
// configured, is reachable.
//
//	@Summary		Readiness check
//	@Description	Checks the credential store is readable and the run history database, when configured, is reachable.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"All checks passed"
//	@Failure		503	{object}	HealthResponse	"A check failed"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.CredentialStore,
	ledger store.Ledger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{
			CredentialStore: "ok",
			Ledger:          "disabled",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if _, err := st.Load(r.Context()); err != nil {
			checks.CredentialStore = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if ledger != nil {
			checks.Ledger = "ok"
			if err := ledger.Ping(r.Context()); err != nil {
				checks.Ledger = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, statusCode, HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
