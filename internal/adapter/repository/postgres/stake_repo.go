package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

const stakeColumns = `address, principal, started_at, last_accrual, updated_at`

// StakeRepository implements usecase.StakeRepository.
type StakeRepository struct {
	pool *pgxpool.Pool
}

// NewStakeRepository creates a new StakeRepository.
func NewStakeRepository(pool *pgxpool.Pool) *StakeRepository {
	return &StakeRepository{pool: pool}
}

// GetByAddress retrieves the accrual record for an address.
func (r *StakeRepository) GetByAddress(ctx context.Context, address domain.Address) (*domain.Stake, error) {
	return r.getByAddress(ctx, r.pool, address, "")
}

// GetByAddressForUpdate locks the accrual record for settlement.
func (r *StakeRepository) GetByAddressForUpdate(ctx context.Context, tx usecase.Transaction, address domain.Address) (*domain.Stake, error) {
	return r.getByAddress(ctx, txQuerier(tx), address, " FOR UPDATE")
}

func (r *StakeRepository) getByAddress(ctx context.Context, q querier, address domain.Address, suffix string) (*domain.Stake, error) {
	row := q.QueryRow(ctx, `SELECT `+stakeColumns+` FROM stakes WHERE address = $1`+suffix, string(address))

	stake, err := scanStake(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveStake
		}

		return nil, err
	}

	return stake, nil
}

// Upsert writes the record, replacing an existing one for the address.
func (r *StakeRepository) Upsert(ctx context.Context, tx usecase.Transaction, stake *domain.Stake) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO stakes (`+stakeColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET principal = EXCLUDED.principal,
		    last_accrual = EXCLUDED.last_accrual,
		    updated_at = EXCLUDED.updated_at`,
		string(stake.Address),
		decimalToNumeric(stake.Principal),
		timeToPgTimestamptz(stake.StartedAt),
		timeToPgTimestamptz(stake.LastAccrual),
		timeToPgTimestamptz(stake.UpdatedAt),
	)

	return err
}

// Delete removes the record entirely.
func (r *StakeRepository) Delete(ctx context.Context, tx usecase.Transaction, address domain.Address) error {
	_, err := txQuerier(tx).Exec(ctx, `DELETE FROM stakes WHERE address = $1`, string(address))

	return err
}

// TotalStaked returns the global principal sum.
func (r *StakeRepository) TotalStaked(ctx context.Context) (decimal.Decimal, error) {
	return r.totalStaked(ctx, r.pool)
}

// TotalStakedTx returns the global principal sum inside a transaction.
func (r *StakeRepository) TotalStakedTx(ctx context.Context, tx usecase.Transaction) (decimal.Decimal, error) {
	return r.totalStaked(ctx, txQuerier(tx))
}

func (r *StakeRepository) totalStaked(ctx context.Context, q querier) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	if err := q.QueryRow(ctx, `SELECT COALESCE(SUM(principal), 0) FROM stakes`).Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func scanStake(row pgx.Row) (*domain.Stake, error) {
	var (
		stake       domain.Stake
		address     string
		principal   pgtype.Numeric
		startedAt   pgtype.Timestamptz
		lastAccrual pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(&address, &principal, &startedAt, &lastAccrual, &updatedAt)
	if err != nil {
		return nil, err
	}

	stake.Address = domain.Address(address)
	stake.Principal = numericToDecimal(principal)
	stake.StartedAt = startedAt.Time
	stake.LastAccrual = lastAccrual.Time
	stake.UpdatedAt = updatedAt.Time

	return &stake, nil
}
