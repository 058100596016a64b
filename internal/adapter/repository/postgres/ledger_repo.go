package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// PolicyTotals returns a policy's custody balance, reward reserve, and the
// value attributed to claimants: active entry amounts for lock and draw,
// total staked principal for accrual.
func (r *LedgerRepository) PolicyTotals(ctx context.Context, policy domain.Policy) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	var balance, reserve pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT balance, reward_reserve FROM custody_accounts WHERE policy = $1`,
		string(policy),
	).Scan(&balance, &reserve)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	attributedQuery := `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE policy = $1 AND disbursed = FALSE`
	args := []any{string(policy)}
	if policy == domain.PolicyAccrual {
		attributedQuery = `SELECT COALESCE(SUM(principal), 0) FROM stakes`
		args = nil
	}

	var attributed pgtype.Numeric
	if err := r.pool.QueryRow(ctx, attributedQuery, args...).Scan(&attributed); err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(balance), numericToDecimal(reserve), numericToDecimal(attributed), nil
}
