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

const roundColumns = `number, entry_fee, status, winner, prize, created_at, drawn_at`

// RoundRepository implements usecase.RoundRepository.
type RoundRepository struct {
	pool *pgxpool.Pool
}

// NewRoundRepository creates a new RoundRepository.
func NewRoundRepository(pool *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{pool: pool}
}

// Create inserts a new round within a transaction.
func (r *RoundRepository) Create(ctx context.Context, tx usecase.Transaction, round *domain.Round) error {
	var winner *string
	if round.Winner != nil {
		w := round.Winner.String()
		winner = &w
	}

	var prize pgtype.Numeric
	if round.Prize != nil {
		prize = decimalToNumeric(*round.Prize)
	}

	_, err := txQuerier(tx).Exec(ctx, `
		INSERT INTO rounds (`+roundColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		round.Number,
		decimalToNumeric(round.EntryFee),
		string(round.Status),
		winner,
		prize,
		timeToPgTimestamptz(round.CreatedAt),
		timePtrToPgTimestamptz(round.DrawnAt),
	)

	return err
}

// GetOpen retrieves the open round.
func (r *RoundRepository) GetOpen(ctx context.Context) (*domain.Round, error) {
	return r.getOpen(ctx, r.pool, "")
}

// GetOpenForUpdate locks the open round row, serializing entries and draws.
func (r *RoundRepository) GetOpenForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.Round, error) {
	return r.getOpen(ctx, txQuerier(tx), " FOR UPDATE")
}

func (r *RoundRepository) getOpen(ctx context.Context, q querier, suffix string) (*domain.Round, error) {
	row := q.QueryRow(ctx, `
		SELECT `+roundColumns+` FROM rounds
		WHERE status = $1
		ORDER BY number
		LIMIT 1`+suffix,
		string(domain.RoundStatusOpen),
	)

	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}

		return nil, err
	}

	return round, nil
}

// GetByNumber retrieves a round by number.
func (r *RoundRepository) GetByNumber(ctx context.Context, number int64) (*domain.Round, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE number = $1`, number)

	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}

		return nil, err
	}

	return round, nil
}

// Close records the winner and prize and closes the round. Closing is
// guarded on the open status so a round can never close twice.
func (r *RoundRepository) Close(ctx context.Context, tx usecase.Transaction, number int64, winner domain.Address, prize decimal.Decimal, drawnAt time.Time) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE rounds
		SET status = $2, winner = $3, prize = $4, drawn_at = $5
		WHERE number = $1 AND status = $6`,
		number,
		string(domain.RoundStatusClosed),
		winner.String(),
		decimalToNumeric(prize),
		timeToPgTimestamptz(drawnAt),
		string(domain.RoundStatusOpen),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoundNotFound
	}

	return nil
}

// UpdateEntryFee changes a round's entry fee.
func (r *RoundRepository) UpdateEntryFee(ctx context.Context, tx usecase.Transaction, number int64, fee decimal.Decimal) error {
	tag, err := txQuerier(tx).Exec(ctx, `
		UPDATE rounds SET entry_fee = $2 WHERE number = $1`,
		number, decimalToNumeric(fee),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoundNotFound
	}

	return nil
}

func scanRound(row pgx.Row) (*domain.Round, error) {
	var (
		round     domain.Round
		status    string
		entryFee  pgtype.Numeric
		winner    *string
		prize     pgtype.Numeric
		createdAt pgtype.Timestamptz
		drawnAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&round.Number,
		&entryFee,
		&status,
		&winner,
		&prize,
		&createdAt,
		&drawnAt,
	)
	if err != nil {
		return nil, err
	}

	round.EntryFee = numericToDecimal(entryFee)
	round.Status = domain.RoundStatus(status)
	if winner != nil {
		w := domain.Address(*winner)
		round.Winner = &w
	}
	if prize.Valid {
		p := numericToDecimal(prize)
		round.Prize = &p
	}
	round.CreatedAt = createdAt.Time
	round.DrawnAt = pgTimestamptzToTimePtr(drawnAt)

	return &round, nil
}
