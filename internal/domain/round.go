package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStatus tracks a draw round through its lifecycle.
type RoundStatus string

const (
	RoundStatusOpen   RoundStatus = "open"
	RoundStatusClosed RoundStatus = "closed"
)

// Round is one draw cycle. Exactly one round is open at a time; closing a
// round records the winner and prize permanently and opens the successor.
type Round struct {
	Number   int64
	EntryFee decimal.Decimal
	Status   RoundStatus
	Winner   *Address
	Prize    *decimal.Decimal
	CreatedAt time.Time
	DrawnAt  *time.Time
}

// Open reports whether the round is still accepting entrants.
func (r *Round) Open() bool {
	return r.Status == RoundStatusOpen
}
