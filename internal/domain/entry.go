package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy identifies which custody policy owns an entry.
type Policy string

const (
	PolicyLock    Policy = "lock"
	PolicyDraw    Policy = "draw"
	PolicyAccrual Policy = "accrual"
)

// Entry is the unit of custody: a recorded deposit tied to a beneficiary
// and a release condition. An entry is disbursed at most once; once
// disbursed its amount is zeroed and immutable.
type Entry struct {
	ID          string
	Policy      Policy
	Beneficiary Address
	Amount      decimal.Decimal
	Disbursed   bool
	Deadline    *time.Time // lock entries only
	Round       *int64     // draw pool slots only
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the entry is a well-formed deposit.
func (e *Entry) Validate() error {
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	return e.Beneficiary.Validate()
}

// Withdrawable reports whether a lock entry is eligible for disbursement.
func (e *Entry) Withdrawable(now time.Time) bool {
	if e.Disbursed || e.Deadline == nil {
		return false
	}
	return !now.Before(*e.Deadline)
}

// RemainingTime returns the time until the deadline, floored at zero.
func (e *Entry) RemainingTime(now time.Time) time.Duration {
	if e.Deadline == nil || e.Disbursed {
		return 0
	}
	remaining := e.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
