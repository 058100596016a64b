package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// EntryRepository defines data access for custody entries (time locks and
// draw pool slots).
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Entry, error)
	// MarkDisbursed flips the disbursed flag and zeroes the amount.
	MarkDisbursed(ctx context.Context, tx Transaction, id string, updatedAt time.Time) error
	UpdateDeadline(ctx context.Context, tx Transaction, id string, deadline time.Time, updatedAt time.Time) error
	ListByBeneficiary(ctx context.Context, policy domain.Policy, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error)
	ListActiveByRound(ctx context.Context, round int64) ([]*domain.Entry, error)
	ListActiveByRoundForUpdate(ctx context.Context, tx Transaction, round int64) ([]*domain.Entry, error)
	MarkRoundDisbursed(ctx context.Context, tx Transaction, round int64, updatedAt time.Time) error
	SumActive(ctx context.Context, policy domain.Policy) (decimal.Decimal, error)
}

// RoundRepository defines data access for draw rounds.
type RoundRepository interface {
	Create(ctx context.Context, tx Transaction, round *domain.Round) error
	GetOpen(ctx context.Context) (*domain.Round, error)
	GetOpenForUpdate(ctx context.Context, tx Transaction) (*domain.Round, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Round, error)
	Close(ctx context.Context, tx Transaction, number int64, winner domain.Address, prize decimal.Decimal, drawnAt time.Time) error
	UpdateEntryFee(ctx context.Context, tx Transaction, number int64, fee decimal.Decimal) error
}

// StakeRepository defines data access for accrual records.
type StakeRepository interface {
	GetByAddress(ctx context.Context, address domain.Address) (*domain.Stake, error)
	GetByAddressForUpdate(ctx context.Context, tx Transaction, address domain.Address) (*domain.Stake, error)
	Upsert(ctx context.Context, tx Transaction, stake *domain.Stake) error
	Delete(ctx context.Context, tx Transaction, address domain.Address) error
	TotalStaked(ctx context.Context) (decimal.Decimal, error)
	TotalStakedTx(ctx context.Context, tx Transaction) (decimal.Decimal, error)
}

// CustodyRepository defines data access for per-policy custody accounts.
type CustodyRepository interface {
	Get(ctx context.Context, policy domain.Policy) (*domain.CustodyAccount, error)
	GetForUpdate(ctx context.Context, tx Transaction, policy domain.Policy) (*domain.CustodyAccount, error)
	// Adjust applies deltas to the balance and reward reserve.
	Adjust(ctx context.Context, tx Transaction, policy domain.Policy, balanceDelta, reserveDelta decimal.Decimal, updatedAt time.Time) error
}

// ParamsRepository defines data access for the owner capability and the
// accrual rate currently in effect.
type ParamsRepository interface {
	Get(ctx context.Context) (*domain.Params, error)
	GetForUpdate(ctx context.Context, tx Transaction) (*domain.Params, error)
	UpdateRewardRate(ctx context.Context, tx Transaction, rateBps int64, updatedAt time.Time) error
	// Seed inserts the initial params row if none exists.
	Seed(ctx context.Context, owner domain.Address, rateBps int64) error
}

// LedgerRepository defines data access for ledger-wide conservation checks.
type LedgerRepository interface {
	// PolicyTotals returns the custody account balance, the reward reserve,
	// and the value attributed to claimants (active entry amounts, or total
	// principal for the accrual policy).
	PolicyTotals(ctx context.Context, policy domain.Policy) (balance, reserve, attributed decimal.Decimal, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock supplies "now" to condition checks so they are deterministic in
// tests. Production wires the system clock in UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Transferer performs the external value transfer of a disbursement.
// Implementations may hand control to recipient-controlled systems; the
// use cases therefore commit all disqualifying state mutations before
// calling Transfer, and treat a Transfer error as full-operation failure.
type Transferer interface {
	Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) error
}

// WinnerPicker selects a pool slot index uniformly over n slots. The
// default implementation uses local entropy and is not publicly
// verifiable; a verifiable-randomness provider can be substituted without
// touching the draw state machine.
type WinnerPicker interface {
	Pick(n int) (int, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
