package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/internal/domain"
)

// StakeHandler handles accrual HTTP requests.
type StakeHandler struct {
	stakeUC StakeService
}

// NewStakeHandler creates a new StakeHandler.
func NewStakeHandler(stakeUC StakeService) *StakeHandler {
	return &StakeHandler{stakeUC: stakeUC}
}

// Stake deposits value into the caller's accrual record.
func (h *StakeHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var req dto.StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	stake, err := h.stakeUC.Stake(r.Context(), req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to stake", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.StakeFromDomain(stake))
}

// Claim settles and pays the caller's accrued reward.
func (h *StakeHandler) Claim(w http.ResponseWriter, r *http.Request) {
	reward, err := h.stakeUC.ClaimRewards(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to claim rewards", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: reward})
}

// Unstake pays principal plus accrued reward and zeroes the record.
func (h *StakeHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	total, err := h.stakeUC.Unstake(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to unstake", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: total})
}

// Get retrieves the accrual record for an address.
func (h *StakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}

	stake, err := h.stakeUC.GetStake(r.Context(), address)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get stake", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.StakeFromDomain(stake))
}

// Reward returns the reward accrued so far for an address.
func (h *StakeHandler) Reward(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}

	reward, err := h.stakeUC.CalculateReward(r.Context(), address)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to calculate reward", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: reward})
}

// Total returns the global principal sum.
func (h *StakeHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.stakeUC.TotalStaked(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get total staked", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: total})
}

// SetRewardRate changes the accrual rate for future intervals.
func (h *StakeHandler) SetRewardRate(w http.ResponseWriter, r *http.Request) {
	var req dto.SetRewardRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.stakeUC.SetRewardRate(r.Context(), req.RateBps); err != nil {
		writeError(w, mapDomainError(err), "failed to set reward rate", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"rate_bps": req.RateBps})
}

// FundRewards tops up the reward reserve.
func (h *StakeHandler) FundRewards(w http.ResponseWriter, r *http.Request) {
	var req dto.FundRewardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.stakeUC.FundRewards(r.Context(), req.Amount); err != nil {
		writeError(w, mapDomainError(err), "failed to fund rewards", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: req.Amount})
}

// EmergencyWithdraw drains the accrual custody balance to the owner.
func (h *StakeHandler) EmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.stakeUC.EmergencyWithdraw(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to emergency withdraw", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: amount})
}
