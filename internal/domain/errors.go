package domain

import "errors"

var (
	// Deposit errors
	ErrInvalidDeposit     = errors.New("deposit amount must be a positive integral value")
	ErrInvalidBeneficiary = errors.New("beneficiary address is missing or zero")
	ErrInvalidAddress     = errors.New("malformed address")

	// Disbursement errors
	ErrEntryNotFound    = errors.New("custody entry not found")
	ErrAlreadyDisbursed = errors.New("entry has already been disbursed")
	ErrUnauthorized     = errors.New("caller is not authorized")
	ErrConditionNotMet  = errors.New("release condition not met")
	ErrTransferFailed   = errors.New("external transfer failed")

	// Time-lock errors
	ErrDeadlineNotFuture   = errors.New("deadline must be in the future")
	ErrDeadlineNotExtended = errors.New("new deadline must be later than the current deadline")

	// Draw errors
	ErrEntryFeeMismatch = errors.New("entry amount must equal the round entry fee exactly")
	ErrEmptyPool        = errors.New("draw pool is empty")
	ErrPoolNotEmpty     = errors.New("draw pool is not empty")
	ErrRoundNotFound    = errors.New("round not found")

	// Accrual errors
	ErrNoActiveStake             = errors.New("no active stake for address")
	ErrActiveStakesPresent       = errors.New("active stakes present")
	ErrInvalidRewardRate         = errors.New("reward rate must be non-negative")
	ErrInsufficientRewardReserve = errors.New("reward reserve is insufficient to settle accrued rewards")
)
