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

const entryColumns = `id, policy, beneficiary, amount, disbursed, deadline, round, description, created_at, updated_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create inserts a new custody entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		string(entry.Policy),
		string(entry.Beneficiary),
		decimalToNumeric(entry.Amount),
		entry.Disbursed,
		timePtrToPgTimestamptz(entry.Deadline),
		entry.Round,
		entry.Description,
		timeToPgTimestamptz(entry.CreatedAt),
		timeToPgTimestamptz(entry.UpdatedAt),
	)

	return err
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate retrieves an entry by ID with a FOR UPDATE lock.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	return r.getByID(ctx, txQuerier(tx), id, " FOR UPDATE")
}

func (r *EntryRepository) getByID(ctx context.Context, q querier, id, suffix string) (*domain.Entry, error) {
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`+suffix, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

// MarkDisbursed flips the disbursed flag and zeroes the amount. The guard
// on the flag makes the update a no-op on a second attempt.
func (r *EntryRepository) MarkDisbursed(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE entries
		SET disbursed = TRUE, amount = 0, updated_at = $2
		WHERE id = $1 AND disbursed = FALSE`,
		id, timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyDisbursed
	}

	return nil
}

// UpdateDeadline moves an entry's deadline.
func (r *EntryRepository) UpdateDeadline(ctx context.Context, tx usecase.Transaction, id string, deadline, updatedAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE entries
		SET deadline = $2, updated_at = $3
		WHERE id = $1 AND disbursed = FALSE`,
		id, timeToPgTimestamptz(deadline), timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// ListByBeneficiary lists a beneficiary's entries for one policy.
func (r *EntryRepository) ListByBeneficiary(ctx context.Context, policy domain.Policy, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE policy = $1 AND beneficiary = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		string(policy), string(beneficiary), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListActiveByRound lists the non-disbursed pool slots of a round in entry
// order.
func (r *EntryRepository) ListActiveByRound(ctx context.Context, round int64) ([]*domain.Entry, error) {
	return r.listActiveByRound(ctx, r.pool, round, "")
}

// ListActiveByRoundForUpdate locks the round's slots for the draw.
func (r *EntryRepository) ListActiveByRoundForUpdate(ctx context.Context, tx usecase.Transaction, round int64) ([]*domain.Entry, error) {
	return r.listActiveByRound(ctx, txQuerier(tx), round, " FOR UPDATE")
}

func (r *EntryRepository) listActiveByRound(ctx context.Context, q querier, round int64, suffix string) ([]*domain.Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE policy = $1 AND round = $2 AND disbursed = FALSE
		ORDER BY created_at, id`+suffix,
		string(domain.PolicyDraw), round,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkRoundDisbursed disburses every active slot of a round at once.
func (r *EntryRepository) MarkRoundDisbursed(ctx context.Context, tx usecase.Transaction, round int64, updatedAt time.Time) error {
	_, err := txQuerier(tx).Exec(ctx, `
		UPDATE entries
		SET disbursed = TRUE, amount = 0, updated_at = $3
		WHERE policy = $1 AND round = $2 AND disbursed = FALSE`,
		string(domain.PolicyDraw), round, timeToPgTimestamptz(updatedAt),
	)

	return err
}

// SumActive sums the non-disbursed amounts of one policy.
func (r *EntryRepository) SumActive(ctx context.Context, policy domain.Policy) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM entries
		WHERE policy = $1 AND disbursed = FALSE`,
		string(policy),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry       domain.Entry
		policy      string
		beneficiary string
		amount      pgtype.Numeric
		deadline    pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.ID,
		&policy,
		&beneficiary,
		&amount,
		&entry.Disbursed,
		&deadline,
		&entry.Round,
		&entry.Description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Policy = domain.Policy(policy)
	entry.Beneficiary = domain.Address(beneficiary)
	entry.Amount = numericToDecimal(amount)
	entry.Deadline = pgTimestamptzToTimePtr(deadline)
	entry.CreatedAt = createdAt.Time
	entry.UpdatedAt = updatedAt.Time

	return &entry, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
