package handler

import (
	"net/http"

	"github.com/yndnr/valtok-go/pkg/token"
)

// handleGenerateToken handles POST /v1/tokens.
func (h *Handler) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req GenerateTokenRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if missing := firstMissing(
		field{"purpose", req.Purpose},
		field{"resource_id", req.ResourceID},
		field{"security_stamp", req.SecurityStamp},
	); missing != "" {
		h.writeError(w, r, http.StatusBadRequest, token.ErrInvalidInput.Code, missing+" is required")
		return
	}

	iss, err := h.tokens.Issue(*req.Purpose, *req.ResourceID, *req.SecurityStamp)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, GenerateTokenResponse{
		Token:     iss.Token,
		ExpiresAt: iss.ExpiresAt,
	})
}

// handleValidateToken handles POST /v1/tokens/validate. Missing fields make
// the token invalid rather than the request.
func (h *Handler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	valid := false
	if firstMissing(
		field{"token", req.Token},
		field{"purpose", req.Purpose},
		field{"resource_id", req.ResourceID},
		field{"security_stamp", req.SecurityStamp},
	) == "" {
		valid = h.tokens.Validate(*req.Token, *req.Purpose, *req.ResourceID, *req.SecurityStamp)
	}

	h.writeJSON(w, r, http.StatusOK, ValidateTokenResponse{Valid: valid})
}

// handleNewStamp handles POST /v1/stamps.
func (h *Handler) handleNewStamp(w http.ResponseWriter, r *http.Request) {
	stamp, err := h.stamps.New()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, StampResponse{SecurityStamp: stamp})
}

type field struct {
	name  string
	value *string
}

// firstMissing returns the name of the first field that was absent or null.
func firstMissing(fields ...field) string {
	for _, f := range fields {
		if f.value == nil {
			return f.name
		}
	}
	return ""
}
