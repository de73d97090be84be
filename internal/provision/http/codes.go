package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/provision/pkg/codescan"
	"github.com/aussiebroadwan/provision/pkg/httpx"
)

// maxMessageBytes bounds the inbound message body.
const maxMessageBytes = 256 << 10

type ExtractCodeRequest struct {
	Text string `json:"text"`
}

type ExtractCodeResponse struct {
	Found      bool                 `json:"found"`
	Code       string               `json:"code,omitempty"`
	Candidates []codescan.Candidate `json:"candidates"`
}

// CodesHandler finds a verification code in an inbound message body.
//
//	@Summary		Extract a verification code
//	@Description	Finds the most likely verification code in a message body and lists every candidate considered. Requires provision:read scope.
//	@Tags			Codes
//	@Accept			json
//	@Produce		json
//	@Param			request	body	ExtractCodeRequest	true	"Message text"
//	@Success		200	{object}	ExtractCodeResponse	"Extraction result"
//	@Failure		400	{object}	httpx.ErrorResponse	"Malformed JSON body"
//	@Failure		401	{object}	httpx.ErrorResponse	"Unauthorized - missing or invalid token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Forbidden - missing required scope"
//	@Failure		429	{object}	httpx.ErrorResponse	"Too many requests"
//	@Security		BearerAuth
//	@Router			/v1/codes/extract [post].
func CodesHandler(ex *codescan.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExtractCodeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
			return
		}

		code, found := ex.Extract(req.Text)
		candidates := ex.Candidates(req.Text)
		if candidates == nil {
			candidates = []codescan.Candidate{}
		}

		httpx.WriteJSON(w, http.StatusOK, ExtractCodeResponse{
			Found:      found,
			Code:       code,
			Candidates: candidates,
		})
	}
}
