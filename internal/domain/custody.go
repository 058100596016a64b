package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustodyAccount is the externally observable balance held on behalf of
// one policy. The conservation invariant ties it to the entries it backs:
// for lock and draw, Balance equals the sum of non-disbursed entry
// amounts; for accrual, Balance equals total staked principal plus
// RewardReserve.
type CustodyAccount struct {
	Policy        Policy
	Balance       decimal.Decimal
	RewardReserve decimal.Decimal // accrual policy only; zero elsewhere
	UpdatedAt     time.Time
}

// Params holds the single-owner capability and the accrual rate currently
// in effect. Owner-gated operations compare the caller against Owner.
type Params struct {
	Owner         Address
	RewardRateBps int64
	UpdatedAt     time.Time
}
