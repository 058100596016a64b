package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/metrics"
)

// LockUseCase implements the time-lock policy: one custody entry per
// deposit, released to the beneficiary once the deadline passes.
type LockUseCase struct {
	txManager   TransactionManager
	entryRepo   EntryRepository
	custodyRepo CustodyRepository
	outboxRepo  OutboxRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	clock       Clock
	disburser   *disburser
	metrics     *metrics.Metrics
}

func NewLockUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	custodyRepo CustodyRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	clock Clock,
	transferer Transferer,
	metrics *metrics.Metrics,
) *LockUseCase {
	return &LockUseCase{
		txManager:   txManager,
		entryRepo:   entryRepo,
		custodyRepo: custodyRepo,
		outboxRepo:  outboxRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		clock:       clock,
		disburser:   &disburser{custodyRepo: custodyRepo, transferer: transferer},
		metrics:     metrics,
	}
}

// CreateLockInput is the deposit request for a new time lock.
type CreateLockInput struct {
	Beneficiary domain.Address
	Amount      decimal.Decimal
	Deadline    time.Time
	Description string
}

// CreateLock deposits value under a deadline condition. The deadline must
// be strictly in the future at creation.
func (uc *LockUseCase) CreateLock(ctx context.Context, input CreateLockInput) (*domain.Entry, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := input.Beneficiary.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	if !input.Deadline.After(now) {
		return nil, domain.ErrDeadlineNotFuture
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	deadline := input.Deadline.UTC()
	entry := &domain.Entry{
		ID:          uc.idGen.Generate(),
		Policy:      domain.PolicyLock,
		Beneficiary: input.Beneficiary,
		Amount:      input.Amount,
		Deadline:    &deadline,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.custodyRepo.Adjust(txCtx, tx, domain.PolicyLock, input.Amount, decimal.Zero, now); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeLock,
		EventType:     domain.EventTypeLockCreated,
		Payload: map[string]any{
			"entry_id":    entry.ID,
			"beneficiary": entry.Beneficiary.String(),
			"amount":      entry.Amount.String(),
			"deadline":    deadline.Format(time.RFC3339),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       callerID(ctx),
			Action:       string(domain.AuditActionLockCreate),
			ResourceType: "entry",
			ResourceID:   entry.ID,
			AfterState:   domain.MarshalState(entry),
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LocksCreated.Inc()
	}

	return entry, nil
}

// Withdraw disburses a matured lock to its beneficiary. The disbursed mark
// and the custody decrement are applied before the external transfer; a
// failed transfer aborts the operation and rolls both back.
func (uc *LockUseCase) Withdraw(ctx context.Context, entryID string) (decimal.Decimal, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return decimal.Zero, domain.ErrUnauthorized
	}

	start := uc.clock.Now().UTC()
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, entryID)
	if err != nil {
		return decimal.Zero, err
	}
	if entry.Policy != domain.PolicyLock {
		return decimal.Zero, domain.ErrEntryNotFound
	}
	if entry.Disbursed {
		return decimal.Zero, domain.ErrAlreadyDisbursed
	}
	if entry.Beneficiary != caller {
		return decimal.Zero, domain.ErrUnauthorized
	}

	now := uc.clock.Now().UTC()
	if !entry.Withdrawable(now) {
		return decimal.Zero, domain.ErrConditionNotMet
	}

	amount := entry.Amount
	if err := uc.entryRepo.MarkDisbursed(txCtx, tx, entry.ID, now); err != nil {
		return decimal.Zero, err
	}

	if err := uc.disburser.payOut(txCtx, tx, domain.PolicyLock, entry.Beneficiary, amount, decimal.Zero, now); err != nil {
		return decimal.Zero, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeLock,
		EventType:     domain.EventTypeLockWithdrawn,
		Payload: map[string]any{
			"entry_id":    entry.ID,
			"beneficiary": entry.Beneficiary.String(),
			"amount":      amount.String(),
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
		uc.metrics.LocksWithdrawn.Inc()
		uc.metrics.PayoutAmount.WithLabelValues(string(domain.PolicyLock)).Observe(amount.InexactFloat64())
		uc.metrics.LockDuration.Observe(uc.clock.Now().UTC().Sub(start).Seconds())
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionLockWithdraw),
			ResourceType: "entry",
			ResourceID:   entry.ID,
			AfterState:   domain.JSON{"amount": amount.String()},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	return amount, nil
}

// ExtendLock pushes the deadline of a non-disbursed lock strictly forward.
// A deadline never decreases.
func (uc *LockUseCase) ExtendLock(ctx context.Context, entryID string, newDeadline time.Time) (*domain.Entry, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Policy != domain.PolicyLock {
		return nil, domain.ErrEntryNotFound
	}
	if entry.Disbursed {
		return nil, domain.ErrAlreadyDisbursed
	}
	if entry.Beneficiary != caller {
		return nil, domain.ErrUnauthorized
	}

	newDeadline = newDeadline.UTC()
	if entry.Deadline != nil && !newDeadline.After(*entry.Deadline) {
		return nil, domain.ErrDeadlineNotExtended
	}

	now := uc.clock.Now().UTC()
	oldDeadline := entry.Deadline
	if err := uc.entryRepo.UpdateDeadline(txCtx, tx, entry.ID, newDeadline, now); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"entry_id":     entry.ID,
		"new_deadline": newDeadline.Format(time.RFC3339),
	}
	if oldDeadline != nil {
		payload["old_deadline"] = oldDeadline.Format(time.RFC3339)
	}
	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeLock,
		EventType:     domain.EventTypeLockExtended,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LocksExtended.Inc()
	}

	entry.Deadline = &newDeadline
	entry.UpdatedAt = now
	return entry, nil
}

// BatchWithdrawResult reports which entries a batch withdrawal paid out.
// Ineligible ids are skipped silently; callers needing per-id diagnostics
// must attempt them individually.
type BatchWithdrawResult struct {
	Withdrawn []string
	TotalPaid decimal.Decimal
}

// BatchWithdraw attempts withdrawal of each id independently. Every
// attempt enforces the full disbursement preconditions, so batching never
// lets a caller withdraw on another beneficiary's behalf; ids that are not
// yet eligible, not owned by the caller, already disbursed, or whose
// payout fails are skipped without aborting the batch.
func (uc *LockUseCase) BatchWithdraw(ctx context.Context, entryIDs []string) (*BatchWithdrawResult, error) {
	if _, ok := domain.CallerFromContext(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}

	result := &BatchWithdrawResult{TotalPaid: decimal.Zero}
	for _, id := range entryIDs {
		paid, err := uc.Withdraw(ctx, id)
		if err != nil {
			continue
		}
		result.Withdrawn = append(result.Withdrawn, id)
		result.TotalPaid = result.TotalPaid.Add(paid)
	}

	return result, nil
}

// GetLock retrieves a lock entry.
func (uc *LockUseCase) GetLock(ctx context.Context, entryID string) (*domain.Entry, error) {
	entry, err := uc.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Policy != domain.PolicyLock {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}

// ListByBeneficiary lists lock entries for a beneficiary.
func (uc *LockUseCase) ListByBeneficiary(ctx context.Context, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error) {
	return uc.entryRepo.ListByBeneficiary(ctx, domain.PolicyLock, beneficiary, limit, offset)
}

// RemainingTime returns the time until an entry's deadline, floored at zero.
func (uc *LockUseCase) RemainingTime(ctx context.Context, entryID string) (time.Duration, error) {
	entry, err := uc.GetLock(ctx, entryID)
	if err != nil {
		return 0, err
	}
	return entry.RemainingTime(uc.clock.Now().UTC()), nil
}

// IsWithdrawable reports whether an entry is currently eligible for withdrawal.
func (uc *LockUseCase) IsWithdrawable(ctx context.Context, entryID string) (bool, error) {
	entry, err := uc.GetLock(ctx, entryID)
	if err != nil {
		return false, err
	}
	return entry.Withdrawable(uc.clock.Now().UTC()), nil
}

// TotalLocked returns the sum of all non-disbursed lock amounts.
func (uc *LockUseCase) TotalLocked(ctx context.Context) (decimal.Decimal, error) {
	return uc.entryRepo.SumActive(ctx, domain.PolicyLock)
}

// callerID formats the context caller for audit records.
func callerID(ctx context.Context) string {
	if caller, ok := domain.CallerFromContext(ctx); ok {
		return caller.String()
	}
	return "system"
}
