package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// ErrParamsNotSeeded is returned when the params row is missing; Seed must
// run at boot before any use case touches the ledger.
var ErrParamsNotSeeded = errors.New("custody params not seeded")

// ParamsRepository implements usecase.ParamsRepository over the single
// params row holding the owner capability and the accrual rate.
type ParamsRepository struct {
	pool *pgxpool.Pool
}

// NewParamsRepository creates a new ParamsRepository.
func NewParamsRepository(pool *pgxpool.Pool) *ParamsRepository {
	return &ParamsRepository{pool: pool}
}

// Get retrieves the params row.
func (r *ParamsRepository) Get(ctx context.Context) (*domain.Params, error) {
	return r.get(ctx, r.pool, "")
}

// GetForUpdate locks the params row.
func (r *ParamsRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.Params, error) {
	return r.get(ctx, txQuerier(tx), " FOR UPDATE")
}

func (r *ParamsRepository) get(ctx context.Context, q querier, suffix string) (*domain.Params, error) {
	var (
		owner     string
		rateBps   int64
		updatedAt pgtype.Timestamptz
	)

	err := q.QueryRow(ctx, `
		SELECT owner, reward_rate_bps, updated_at
		FROM custody_params WHERE id = 1`+suffix,
	).Scan(&owner, &rateBps, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParamsNotSeeded
		}

		return nil, err
	}

	return &domain.Params{
		Owner:         domain.Address(owner),
		RewardRateBps: rateBps,
		UpdatedAt:     updatedAt.Time,
	}, nil
}

// UpdateRewardRate changes the accrual rate.
func (r *ParamsRepository) UpdateRewardRate(ctx context.Context, tx usecase.Transaction, rateBps int64, updatedAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE custody_params SET reward_rate_bps = $1, updated_at = $2 WHERE id = 1`,
		rateBps, timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrParamsNotSeeded
	}

	return nil
}

// Seed inserts the initial params row if none exists. An existing row wins;
// restarts never rotate the owner.
func (r *ParamsRepository) Seed(ctx context.Context, owner domain.Address, rateBps int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO custody_params (id, owner, reward_rate_bps, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO NOTHING`,
		owner.String(), rateBps,
	)

	return err
}
