package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrInvalidBeneficiary),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrDeadlineNotFuture),
		errors.Is(err, domain.ErrDeadlineNotExtended),
		errors.Is(err, domain.ErrEntryFeeMismatch),
		errors.Is(err, domain.ErrInvalidRewardRate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrNoActiveStake):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyDisbursed),
		errors.Is(err, domain.ErrConditionNotMet),
		errors.Is(err, domain.ErrEmptyPool),
		errors.Is(err, domain.ErrPoolNotEmpty),
		errors.Is(err, domain.ErrActiveStakesPresent),
		errors.Is(err, domain.ErrInsufficientRewardReserve):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, usecase.ErrInconsistentLedger):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
