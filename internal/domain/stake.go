package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reward rate arithmetic constants. Rates are expressed in basis points
// relative to RateDenominator, annualized over SecondsPerYear.
const (
	RateDenominator int64 = 10000
	SecondsPerYear  int64 = 365 * 24 * 60 * 60
)

// Stake is the per-identity accrual record. There is no state machine
// beyond "has stake" / "has no stake": rewards accrue continuously from
// LastAccrual and every settlement advances the checkpoint.
type Stake struct {
	Address     Address
	Principal   decimal.Decimal
	StartedAt   time.Time
	LastAccrual time.Time
	UpdatedAt   time.Time
}

// Active reports whether the record carries a live principal.
func (s *Stake) Active() bool {
	return s != nil && s.Principal.IsPositive()
}

// AccruedReward computes the reward earned since the last accrual
// checkpoint at the given rate:
//
//	floor(principal * rateBps * elapsedSeconds / (RateDenominator * SecondsPerYear))
//
// Truncation toward zero is the defined rounding policy. Elapsed time is
// floored to whole seconds; a non-positive interval accrues nothing.
func (s *Stake) AccruedReward(rateBps int64, now time.Time) decimal.Decimal {
	if !s.Active() || rateBps <= 0 {
		return decimal.Zero
	}

	elapsed := int64(now.Sub(s.LastAccrual).Seconds())
	if elapsed <= 0 {
		return decimal.Zero
	}

	numerator := s.Principal.
		Mul(decimal.NewFromInt(rateBps)).
		Mul(decimal.NewFromInt(elapsed))
	denominator := decimal.NewFromInt(RateDenominator).
		Mul(decimal.NewFromInt(SecondsPerYear))

	return numerator.Div(denominator).Floor()
}
