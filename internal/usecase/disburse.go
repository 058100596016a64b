package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// disburser is the shared payout discipline of all three policies: decrement
// the custody account, then attempt the external transfer, inside one
// transaction. The caller has already applied the mutations that make the
// entry ineligible for re-disbursement (disbursed flag, stake deletion,
// pool clearing), so any re-entrant call issued by the recipient during
// Transfer is rejected by the ordinary precondition checks. A Transfer
// error fails the whole operation; the enclosing transaction rolls back and
// no mutation survives.
type disburser struct {
	custodyRepo CustodyRepository
	transferer  Transferer
}

// payOut moves amount to the recipient. reservePart is the portion funded
// by the accrual reward reserve (zero for lock and draw payouts).
func (d *disburser) payOut(ctx context.Context, tx Transaction, policy domain.Policy, to domain.Address, amount, reservePart decimal.Decimal, now time.Time) error {
	if amount.IsZero() {
		return nil
	}

	if err := d.custodyRepo.Adjust(ctx, tx, policy, amount.Neg(), reservePart.Neg(), now); err != nil {
		return err
	}

	if err := d.transferer.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTransferFailed, err)
	}

	return nil
}
