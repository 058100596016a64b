package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// CreateLockRequest represents a request to create a time lock.
type CreateLockRequest struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
	Deadline    time.Time       `json:"deadline"`
	Description string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateLockRequest) ToUseCaseInput() (usecase.CreateLockInput, error) {
	beneficiary, err := domain.ParseAddress(r.Beneficiary)
	if err != nil {
		return usecase.CreateLockInput{}, err
	}
	return usecase.CreateLockInput{
		Beneficiary: beneficiary,
		Amount:      r.Amount,
		Deadline:    r.Deadline,
		Description: r.Description,
	}, nil
}

// ExtendLockRequest represents a request to push a lock deadline forward.
type ExtendLockRequest struct {
	NewDeadline time.Time `json:"new_deadline"`
}

// BatchWithdrawRequest represents a request to withdraw several locks.
type BatchWithdrawRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

// EnterDrawRequest represents a request to buy one pool slot.
type EnterDrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SetEntryFeeRequest represents a request to change the round entry fee.
type SetEntryFeeRequest struct {
	EntryFee decimal.Decimal `json:"entry_fee"`
}

// StakeRequest represents a deposit into the caller's accrual record.
type StakeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SetRewardRateRequest represents a request to change the accrual rate.
type SetRewardRateRequest struct {
	RateBps int64 `json:"rate_bps"`
}

// FundRewardsRequest represents a reward reserve top-up.
type FundRewardsRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TokenRequest represents a request for a caller token.
type TokenRequest struct {
	Address string `json:"address"`
}
