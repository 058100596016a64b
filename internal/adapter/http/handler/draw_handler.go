package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/custody/internal/adapter/http/dto"
)

// DrawHandler handles draw HTTP requests.
type DrawHandler struct {
	drawUC DrawService
}

// NewDrawHandler creates a new DrawHandler.
func NewDrawHandler(drawUC DrawService) *DrawHandler {
	return &DrawHandler{drawUC: drawUC}
}

// Enter buys one pool slot in the open round.
func (h *DrawHandler) Enter(w http.ResponseWriter, r *http.Request) {
	var req dto.EnterDrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.drawUC.Enter(r.Context(), req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to enter draw", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// PickWinner closes the open round and pays the pool to one slot.
func (h *DrawHandler) PickWinner(w http.ResponseWriter, r *http.Request) {
	round, err := h.drawUC.PickWinner(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to pick winner", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RoundFromDomain(round))
}

// SetEntryFee changes the open round's entry fee.
func (h *DrawHandler) SetEntryFee(w http.ResponseWriter, r *http.Request) {
	var req dto.SetEntryFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	round, err := h.drawUC.SetEntryFee(r.Context(), req.EntryFee)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to set entry fee", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RoundFromDomain(round))
}

// CurrentRound returns the open round.
func (h *DrawHandler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.drawUC.CurrentRound(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get current round", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RoundFromDomain(round))
}

// Pool lists the open round's active slots.
func (h *DrawHandler) Pool(w http.ResponseWriter, r *http.Request) {
	round, slots, err := h.drawUC.Pool(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get pool", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PoolResponse{
		Round: dto.RoundFromDomain(round),
		Slots: dto.EntriesFromDomain(slots),
	})
}

// PrizePool returns the open round's pool balance.
func (h *DrawHandler) PrizePool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.drawUC.PrizePool(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get prize pool", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: pool})
}

// Winner looks up a closed round's recorded winner.
func (h *DrawHandler) Winner(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round number", err.Error())
		return
	}

	round, err := h.drawUC.WinnerByRound(r.Context(), number)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get winner", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RoundFromDomain(round))
}
