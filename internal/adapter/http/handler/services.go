package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// LockService is the use case surface the lock handler depends on.
type LockService interface {
	CreateLock(ctx context.Context, input usecase.CreateLockInput) (*domain.Entry, error)
	Withdraw(ctx context.Context, entryID string) (decimal.Decimal, error)
	BatchWithdraw(ctx context.Context, entryIDs []string) (*usecase.BatchWithdrawResult, error)
	ExtendLock(ctx context.Context, entryID string, newDeadline time.Time) (*domain.Entry, error)
	GetLock(ctx context.Context, entryID string) (*domain.Entry, error)
	ListByBeneficiary(ctx context.Context, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error)
	RemainingTime(ctx context.Context, entryID string) (time.Duration, error)
	IsWithdrawable(ctx context.Context, entryID string) (bool, error)
	TotalLocked(ctx context.Context) (decimal.Decimal, error)
}

// DrawService is the use case surface the draw handler depends on.
type DrawService interface {
	Enter(ctx context.Context, amount decimal.Decimal) (*domain.Entry, error)
	PickWinner(ctx context.Context) (*domain.Round, error)
	SetEntryFee(ctx context.Context, fee decimal.Decimal) (*domain.Round, error)
	CurrentRound(ctx context.Context) (*domain.Round, error)
	Pool(ctx context.Context) (*domain.Round, []*domain.Entry, error)
	PrizePool(ctx context.Context) (decimal.Decimal, error)
	WinnerByRound(ctx context.Context, number int64) (*domain.Round, error)
}

// StakeService is the use case surface the stake handler depends on.
type StakeService interface {
	Stake(ctx context.Context, amount decimal.Decimal) (*domain.Stake, error)
	ClaimRewards(ctx context.Context) (decimal.Decimal, error)
	Unstake(ctx context.Context) (decimal.Decimal, error)
	CalculateReward(ctx context.Context, address domain.Address) (decimal.Decimal, error)
	GetStake(ctx context.Context, address domain.Address) (*domain.Stake, error)
	TotalStaked(ctx context.Context) (decimal.Decimal, error)
	SetRewardRate(ctx context.Context, rateBps int64) error
	FundRewards(ctx context.Context, amount decimal.Decimal) error
	EmergencyWithdraw(ctx context.Context) (decimal.Decimal, error)
}

// LedgerService is the use case surface the ledger handler depends on.
type LedgerService interface {
	CheckConsistency(ctx context.Context) ([]usecase.PolicyReport, error)
}
