package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// CustodyRepository implements usecase.CustodyRepository over the per-policy
// custody accounts. The three rows are seeded by migration.
type CustodyRepository struct {
	pool *pgxpool.Pool
}

// NewCustodyRepository creates a new CustodyRepository.
func NewCustodyRepository(pool *pgxpool.Pool) *CustodyRepository {
	return &CustodyRepository{pool: pool}
}

// Get retrieves a policy's custody account.
func (r *CustodyRepository) Get(ctx context.Context, policy domain.Policy) (*domain.CustodyAccount, error) {
	return r.get(ctx, r.pool, policy, "")
}

// GetForUpdate locks a policy's custody account.
func (r *CustodyRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, policy domain.Policy) (*domain.CustodyAccount, error) {
	return r.get(ctx, txQuerier(tx), policy, " FOR UPDATE")
}

func (r *CustodyRepository) get(ctx context.Context, q querier, policy domain.Policy, suffix string) (*domain.CustodyAccount, error) {
	var (
		balance   pgtype.Numeric
		reserve   pgtype.Numeric
		updatedAt pgtype.Timestamptz
	)

	err := q.QueryRow(ctx, `
		SELECT balance, reward_reserve, updated_at
		FROM custody_accounts WHERE policy = $1`+suffix,
		string(policy),
	).Scan(&balance, &reserve, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return &domain.CustodyAccount{
		Policy:        policy,
		Balance:       numericToDecimal(balance),
		RewardReserve: numericToDecimal(reserve),
		UpdatedAt:     updatedAt.Time,
	}, nil
}

// Adjust applies deltas to the balance and reward reserve. The balance
// check constraint rejects any adjustment that would drive it negative.
func (r *CustodyRepository) Adjust(ctx context.Context, tx usecase.Transaction, policy domain.Policy, balanceDelta, reserveDelta decimal.Decimal, updatedAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE custody_accounts
		SET balance = balance + $2,
		    reward_reserve = reward_reserve + $3,
		    updated_at = $4
		WHERE policy = $1`,
		string(policy),
		decimalToNumeric(balanceDelta),
		decimalToNumeric(reserveDelta),
		timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}
