package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// ErrInconsistentLedger is returned when a policy's custody balance does
// not match the value attributed to its claimants.
var ErrInconsistentLedger = errors.New("custody balance does not match attributed value")

// LedgerUseCase verifies the conservation invariant: for every policy, the
// custody balance equals the sum of value attributable to claimants plus
// the unattributed reward reserve.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{ledgerRepo: ledgerRepo}
}

// PolicyReport is the conservation state of one policy.
type PolicyReport struct {
	Policy     domain.Policy
	Balance    decimal.Decimal
	Reserve    decimal.Decimal
	Attributed decimal.Decimal
	Consistent bool
}

// CheckConsistency audits every policy. It returns the per-policy reports
// and ErrInconsistentLedger if any policy fails conservation.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) ([]PolicyReport, error) {
	policies := []domain.Policy{domain.PolicyLock, domain.PolicyDraw, domain.PolicyAccrual}

	reports := make([]PolicyReport, 0, len(policies))
	consistent := true

	for _, policy := range policies {
		balance, reserve, attributed, err := uc.ledgerRepo.PolicyTotals(ctx, policy)
		if err != nil {
			return nil, err
		}

		// balance = attributed + reserve; the reserve is zero outside accrual.
		ok := balance.Equal(attributed.Add(reserve))
		if !ok {
			consistent = false
		}

		reports = append(reports, PolicyReport{
			Policy:     policy,
			Balance:    balance,
			Reserve:    reserve,
			Attributed: attributed,
			Consistent: ok,
		})
	}

	if !consistent {
		return reports, ErrInconsistentLedger
	}

	return reports, nil
}
