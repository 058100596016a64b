package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/metrics"
)

// StakeUseCase implements the accrual policy: per-identity principal with
// continuous, time-proportional reward accrual. Every settlement uses the
// rate in effect at settlement time over the interval since the last
// checkpoint, so rate changes only affect future accrual.
type StakeUseCase struct {
	txManager   TransactionManager
	stakeRepo   StakeRepository
	custodyRepo CustodyRepository
	paramsRepo  ParamsRepository
	outboxRepo  OutboxRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	clock       Clock
	disburser   *disburser
	metrics     *metrics.Metrics
}

func NewStakeUseCase(
	txManager TransactionManager,
	stakeRepo StakeRepository,
	custodyRepo CustodyRepository,
	paramsRepo ParamsRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	clock Clock,
	transferer Transferer,
	metrics *metrics.Metrics,
) *StakeUseCase {
	return &StakeUseCase{
		txManager:   txManager,
		stakeRepo:   stakeRepo,
		custodyRepo: custodyRepo,
		paramsRepo:  paramsRepo,
		outboxRepo:  outboxRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		clock:       clock,
		disburser:   &disburser{custodyRepo: custodyRepo, transferer: transferer},
		metrics:     metrics,
	}
}

// Stake deposits value into the caller's accrual record. An existing stake
// is settled first: accrued rewards are paid out before the new principal
// is added, so the deposit cannot retroactively inflate rewards computed
// over the prior holding period.
func (uc *StakeUseCase) Stake(ctx context.Context, amount decimal.Decimal) (*domain.Stake, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	params, err := uc.paramsRepo.Get(txCtx)
	if err != nil {
		return nil, err
	}

	stake, err := uc.stakeRepo.GetByAddressForUpdate(txCtx, tx, caller)
	if err != nil && !errors.Is(err, domain.ErrNoActiveStake) {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	reward := decimal.Zero
	if stake.Active() {
		reward = stake.AccruedReward(params.RewardRateBps, now)
	} else {
		stake = &domain.Stake{Address: caller, Principal: decimal.Zero, StartedAt: now}
	}

	stake.Principal = stake.Principal.Add(amount)
	stake.LastAccrual = now
	stake.UpdatedAt = now
	if err := uc.stakeRepo.Upsert(txCtx, tx, stake); err != nil {
		return nil, err
	}

	// The deposit grows the custody balance; the settled reward is paid out
	// of the reserve afterwards, inside the same transaction.
	if err := uc.custodyRepo.Adjust(txCtx, tx, domain.PolicyAccrual, amount, decimal.Zero, now); err != nil {
		return nil, err
	}
	if reward.IsPositive() {
		if err := uc.settleReward(txCtx, tx, caller, reward, now); err != nil {
			return nil, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   caller.String(),
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeCreated,
		Payload: map[string]any{
			"address":        caller.String(),
			"amount":         amount.String(),
			"principal":      stake.Principal.String(),
			"settled_reward": reward.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.StakesCreated.Inc()
	}

	return stake, nil
}

// ClaimRewards settles and pays the accrued reward only; principal stays
// untouched and the accrual checkpoint resets to now.
func (uc *StakeUseCase) ClaimRewards(ctx context.Context) (decimal.Decimal, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return decimal.Zero, domain.ErrUnauthorized
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	params, err := uc.paramsRepo.Get(txCtx)
	if err != nil {
		return decimal.Zero, err
	}

	stake, err := uc.stakeRepo.GetByAddressForUpdate(txCtx, tx, caller)
	if err != nil {
		return decimal.Zero, err
	}
	if !stake.Active() {
		return decimal.Zero, domain.ErrNoActiveStake
	}

	now := uc.clock.Now().UTC()
	reward := stake.AccruedReward(params.RewardRateBps, now)

	stake.LastAccrual = now
	stake.UpdatedAt = now
	if err := uc.stakeRepo.Upsert(txCtx, tx, stake); err != nil {
		return decimal.Zero, err
	}

	if reward.IsPositive() {
		if err := uc.settleReward(txCtx, tx, caller, reward, now); err != nil {
			return decimal.Zero, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   caller.String(),
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeRewardsClaimed,
		Payload: map[string]any{
			"address": caller.String(),
			"reward":  reward.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return decimal.Zero, err
	}

	if uc.metrics != nil {
		uc.metrics.RewardsClaimed.Inc()
		uc.metrics.PayoutAmount.WithLabelValues(string(domain.PolicyAccrual)).Observe(reward.InexactFloat64())
	}

	return reward, nil
}

// Unstake pays principal plus all accrued reward in a single transfer and
// zeroes the caller's record entirely.
func (uc *StakeUseCase) Unstake(ctx context.Context) (decimal.Decimal, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return decimal.Zero, domain.ErrUnauthorized
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	params, err := uc.paramsRepo.Get(txCtx)
	if err != nil {
		return decimal.Zero, err
	}

	stake, err := uc.stakeRepo.GetByAddressForUpdate(txCtx, tx, caller)
	if err != nil {
		return decimal.Zero, err
	}
	if !stake.Active() {
		return decimal.Zero, domain.ErrNoActiveStake
	}

	now := uc.clock.Now().UTC()
	reward := stake.AccruedReward(params.RewardRateBps, now)
	principal := stake.Principal
	total := principal.Add(reward)

	if reward.IsPositive() {
		custody, err := uc.custodyRepo.GetForUpdate(txCtx, tx, domain.PolicyAccrual)
		if err != nil {
			return decimal.Zero, err
		}
		if custody.RewardReserve.LessThan(reward) {
			return decimal.Zero, domain.ErrInsufficientRewardReserve
		}
	}

	// The record is zeroed before the transfer; a re-entrant unstake or
	// claim during the payout finds no active stake.
	if err := uc.stakeRepo.Delete(txCtx, tx, caller); err != nil {
		return decimal.Zero, err
	}

	if err := uc.disburser.payOut(txCtx, tx, domain.PolicyAccrual, caller, total, reward, now); err != nil {
		if uc.metrics != nil {
			uc.metrics.DisburseFailures.WithLabelValues(string(domain.PolicyAccrual)).Inc()
		}
		return decimal.Zero, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   caller.String(),
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeUnstaked,
		Payload: map[string]any{
			"address":   caller.String(),
			"principal": principal.String(),
			"reward":    reward.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return decimal.Zero, err
	}

	if uc.metrics != nil {
		uc.metrics.Unstakes.Inc()
		uc.metrics.PayoutAmount.WithLabelValues(string(domain.PolicyAccrual)).Observe(total.InexactFloat64())
	}

	return total, nil
}

// CalculateReward is a pure read of the reward accrued so far. An address
// without a stake has accrued nothing.
func (uc *StakeUseCase) CalculateReward(ctx context.Context, address domain.Address) (decimal.Decimal, error) {
	params, err := uc.paramsRepo.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	stake, err := uc.stakeRepo.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveStake) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return stake.AccruedReward(params.RewardRateBps, uc.clock.Now().UTC()), nil
}

// GetStake retrieves the accrual record for an address.
func (uc *StakeUseCase) GetStake(ctx context.Context, address domain.Address) (*domain.Stake, error) {
	return uc.stakeRepo.GetByAddress(ctx, address)
}

// TotalStaked returns the global principal sum.
func (uc *StakeUseCase) TotalStaked(ctx context.Context) (decimal.Decimal, error) {
	return uc.stakeRepo.TotalStaked(ctx)
}

// SetRewardRate changes the accrual rate for future intervals. Prior
// accrual is unaffected: settlements already checkpointed their interval
// at the old rate.
func (uc *StakeUseCase) SetRewardRate(ctx context.Context, rateBps int64) error {
	caller, err := uc.requireOwner(ctx)
	if err != nil {
		return err
	}
	if rateBps < 0 {
		return domain.ErrInvalidRewardRate
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	params, err := uc.paramsRepo.GetForUpdate(txCtx, tx)
	if err != nil {
		return err
	}

	now := uc.clock.Now().UTC()
	if err := uc.paramsRepo.UpdateRewardRate(txCtx, tx, rateBps, now); err != nil {
		return err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   "params",
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeRateChanged,
		Payload: map[string]any{
			"old_rate_bps": params.RewardRateBps,
			"new_rate_bps": rateBps,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionStakeSetRate),
			ResourceType: "params",
			ResourceID:   "params",
			AfterState:   domain.JSON{"rate_bps": strconv.FormatInt(rateBps, 10)},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	return nil
}

// FundRewards tops up the reward reserve: custody balance without a
// corresponding per-identity entry. It only has to satisfy conservation in
// aggregate.
func (uc *StakeUseCase) FundRewards(ctx context.Context, amount decimal.Decimal) error {
	caller, err := uc.requireOwner(ctx)
	if err != nil {
		return err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock.Now().UTC()
	if err := uc.custodyRepo.Adjust(txCtx, tx, domain.PolicyAccrual, amount, amount, now); err != nil {
		return err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   caller.String(),
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeFunded,
		Payload: map[string]any{
			"funder": caller.String(),
			"amount": amount.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionStakeFund),
			ResourceType: "custody",
			ResourceID:   string(domain.PolicyAccrual),
			AfterState:   domain.JSON{"amount": amount.String()},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	return nil
}

// EmergencyWithdraw drains the accrual custody balance to the owner.
// Permitted only when no principal is staked, so the owner can never pull
// funds owed to active stakers.
func (uc *StakeUseCase) EmergencyWithdraw(ctx context.Context) (decimal.Decimal, error) {
	caller, err := uc.requireOwner(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	totalStaked, err := uc.stakeRepo.TotalStakedTx(txCtx, tx)
	if err != nil {
		return decimal.Zero, err
	}
	if totalStaked.IsPositive() {
		return decimal.Zero, domain.ErrActiveStakesPresent
	}

	custody, err := uc.custodyRepo.GetForUpdate(txCtx, tx, domain.PolicyAccrual)
	if err != nil {
		return decimal.Zero, err
	}

	amount := custody.Balance
	now := uc.clock.Now().UTC()
	if amount.IsPositive() {
		if err := uc.disburser.payOut(txCtx, tx, domain.PolicyAccrual, caller, amount, custody.RewardReserve, now); err != nil {
			return decimal.Zero, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   caller.String(),
		AggregateType: domain.AggregateTypeStake,
		EventType:     domain.EventTypeStakeEmergencyWithdrawn,
		Payload: map[string]any{
			"owner":  caller.String(),
			"amount": amount.String(),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return decimal.Zero, err
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionStakeEmergencyWithdraw),
			ResourceType: "custody",
			ResourceID:   string(domain.PolicyAccrual),
			AfterState:   domain.JSON{"amount": amount.String()},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	return amount, nil
}

// settleReward checks the reserve covers the reward, then pays it out with
// the shared mutate-before-transfer discipline.
func (uc *StakeUseCase) settleReward(ctx context.Context, tx Transaction, to domain.Address, reward decimal.Decimal, now time.Time) error {
	custody, err := uc.custodyRepo.GetForUpdate(ctx, tx, domain.PolicyAccrual)
	if err != nil {
		return err
	}
	if custody.RewardReserve.LessThan(reward) {
		return domain.ErrInsufficientRewardReserve
	}
	return uc.disburser.payOut(ctx, tx, domain.PolicyAccrual, to, reward, reward, now)
}

func (uc *StakeUseCase) requireOwner(ctx context.Context) (domain.Address, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	params, err := uc.paramsRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if caller != params.Owner {
		return "", domain.ErrUnauthorized
	}
	return caller, nil
}
