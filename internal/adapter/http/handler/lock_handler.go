package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/internal/domain"
)

// LockHandler handles time-lock HTTP requests.
type LockHandler struct {
	lockUC LockService
}

// NewLockHandler creates a new LockHandler.
func NewLockHandler(lockUC LockService) *LockHandler {
	return &LockHandler{lockUC: lockUC}
}

// Create deposits value under a deadline condition.
func (h *LockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid beneficiary", err.Error())
		return
	}

	entry, err := h.lockUC.CreateLock(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create lock", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get retrieves a lock entry by ID.
func (h *LockHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.lockUC.GetLock(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get lock", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Status reports whether a lock is withdrawable and the time remaining.
func (h *LockHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	withdrawable, err := h.lockUC.IsWithdrawable(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get lock status", err.Error())
		return
	}

	remaining, err := h.lockUC.RemainingTime(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get lock status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LockStatusResponse{
		EntryID:          id,
		Withdrawable:     withdrawable,
		RemainingSeconds: int64(remaining.Seconds()),
	})
}

// List lists lock entries for a beneficiary.
func (h *LockHandler) List(w http.ResponseWriter, r *http.Request) {
	beneficiary, err := domain.ParseAddress(r.URL.Query().Get("beneficiary"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid beneficiary", err.Error())
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.lockUC.ListByBeneficiary(r.Context(), beneficiary, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list locks", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Withdraw disburses a matured lock to its beneficiary.
func (h *LockHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	amount, err := h.lockUC.Withdraw(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to withdraw", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawResponse{EntryID: id, Amount: amount})
}

// BatchWithdraw attempts withdrawal of several locks independently.
func (h *LockHandler) BatchWithdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.lockUC.BatchWithdraw(r.Context(), req.EntryIDs)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to withdraw batch", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchWithdrawFromResult(result))
}

// Extend pushes a lock deadline strictly forward.
func (h *LockHandler) Extend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.ExtendLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.lockUC.ExtendLock(r.Context(), id, req.NewDeadline)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to extend lock", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Total returns the sum of all non-disbursed lock amounts.
func (h *LockHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.lockUC.TotalLocked(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get total locked", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: total})
}
