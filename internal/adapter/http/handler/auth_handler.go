package handler

import (
	"encoding/json"
	"net/http"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/auth"
)

// AuthHandler issues caller tokens. Tokens only assert an address; all
// authorization decisions stay in the use cases.
type AuthHandler struct {
	tokens *auth.TokenManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// Token issues a token bound to the requested address.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	address, err := domain.ParseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}

	token, err := h.tokens.Generate(address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}
