package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
	"github.com/iho/custody/internal/usecase/mocks"
)

const (
	alice   = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob     = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	mallory = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
	owner   = domain.Address("0xffffffffffffffffffffffffffffffffffffffff")
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type lockFixture struct {
	uc         *usecase.LockUseCase
	txManager  *mocks.MockTransactionManager
	entryRepo  *mocks.MockEntryRepository
	custody    *mocks.MockCustodyRepository
	outbox     *mocks.MockOutboxRepository
	audit      *mocks.MockAuditRepository
	clock      *mocks.MockClock
	transferer *mocks.MockTransferer
}

func newLockFixture() *lockFixture {
	f := &lockFixture{
		txManager:  mocks.NewMockTransactionManager(),
		entryRepo:  mocks.NewMockEntryRepository(),
		custody:    mocks.NewMockCustodyRepository(),
		outbox:     mocks.NewMockOutboxRepository(),
		audit:      mocks.NewMockAuditRepository(),
		clock:      mocks.NewMockClock(testStart),
		transferer: mocks.NewMockTransferer(),
	}
	f.uc = usecase.NewLockUseCase(
		f.txManager,
		f.entryRepo,
		f.custody,
		f.outbox,
		f.audit,
		mocks.NewMockIDGenerator(),
		f.clock,
		f.transferer,
		nil,
	)
	return f
}

func (f *lockFixture) createLock(t *testing.T, beneficiary domain.Address, amount int64, deadline time.Time) *domain.Entry {
	t.Helper()
	entry, err := f.uc.CreateLock(context.Background(), usecase.CreateLockInput{
		Beneficiary: beneficiary,
		Amount:      decimal.NewFromInt(amount),
		Deadline:    deadline,
	})
	if err != nil {
		t.Fatalf("CreateLock failed: %v", err)
	}
	return entry
}

func callerCtx(addr domain.Address) context.Context {
	return domain.WithCaller(context.Background(), addr)
}

func TestCreateLockValidation(t *testing.T) {
	f := newLockFixture()
	future := testStart.Add(time.Hour)

	tests := []struct {
		name    string
		input   usecase.CreateLockInput
		wantErr error
	}{
		{
			name:    "zero amount",
			input:   usecase.CreateLockInput{Beneficiary: alice, Amount: decimal.Zero, Deadline: future},
			wantErr: domain.ErrInvalidDeposit,
		},
		{
			name:    "negative amount",
			input:   usecase.CreateLockInput{Beneficiary: alice, Amount: decimal.NewFromInt(-5), Deadline: future},
			wantErr: domain.ErrInvalidDeposit,
		},
		{
			name:    "zero beneficiary",
			input:   usecase.CreateLockInput{Beneficiary: domain.ZeroAddress, Amount: decimal.NewFromInt(100), Deadline: future},
			wantErr: domain.ErrInvalidBeneficiary,
		},
		{
			name:    "past deadline",
			input:   usecase.CreateLockInput{Beneficiary: alice, Amount: decimal.NewFromInt(100), Deadline: testStart.Add(-time.Hour)},
			wantErr: domain.ErrDeadlineNotFuture,
		},
		{
			name:    "deadline equals now",
			input:   usecase.CreateLockInput{Beneficiary: alice, Amount: decimal.NewFromInt(100), Deadline: testStart},
			wantErr: domain.ErrDeadlineNotFuture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.CreateLock(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateLock() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateLockPersistsEntryAndCustody(t *testing.T) {
	f := newLockFixture()
	deadline := testStart.Add(24 * time.Hour)

	entry := f.createLock(t, alice, 100, deadline)

	if entry.Policy != domain.PolicyLock {
		t.Errorf("policy = %s, want %s", entry.Policy, domain.PolicyLock)
	}
	if entry.Disbursed {
		t.Error("new entry must not be disbursed")
	}
	if entry.Deadline == nil || !entry.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", entry.Deadline, deadline)
	}

	acc, _ := f.custody.Get(context.Background(), domain.PolicyLock)
	if !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("custody balance = %s, want 100", acc.Balance)
	}

	events := f.outbox.ByType(domain.EventTypeLockCreated)
	if len(events) != 1 {
		t.Fatalf("expected one lock.created event, got %d", len(events))
	}
	if len(f.audit.Logs) != 1 {
		t.Fatalf("expected one audit log, got %d", len(f.audit.Logs))
	}
}

// A deposit locked for ten seconds is refused at five, released at ten,
// and refused again after disbursement.
func TestWithdrawLifecycle(t *testing.T) {
	f := newLockFixture()
	entry := f.createLock(t, alice, 100, testStart.Add(10*time.Second))
	ctx := callerCtx(alice)

	f.clock.Set(testStart.Add(5 * time.Second))
	if _, err := f.uc.Withdraw(ctx, entry.ID); !errors.Is(err, domain.ErrConditionNotMet) {
		t.Fatalf("early withdraw error = %v, want ErrConditionNotMet", err)
	}
	if len(f.transferer.Calls) != 0 {
		t.Fatal("no transfer may happen before the deadline")
	}

	f.clock.Set(testStart.Add(10 * time.Second))
	paid, err := f.uc.Withdraw(ctx, entry.ID)
	if err != nil {
		t.Fatalf("withdraw at deadline failed: %v", err)
	}
	if !paid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("paid = %s, want 100", paid)
	}
	if len(f.transferer.Calls) != 1 || f.transferer.Calls[0].To != alice {
		t.Fatalf("expected one transfer to %s, got %#v", alice, f.transferer.Calls)
	}

	acc, _ := f.custody.Get(context.Background(), domain.PolicyLock)
	if !acc.Balance.IsZero() {
		t.Errorf("custody balance after withdrawal = %s, want 0", acc.Balance)
	}

	if _, err := f.uc.Withdraw(ctx, entry.ID); !errors.Is(err, domain.ErrAlreadyDisbursed) {
		t.Fatalf("second withdraw error = %v, want ErrAlreadyDisbursed", err)
	}
	if len(f.transferer.Calls) != 1 {
		t.Fatal("a disbursed entry must never pay again")
	}
}

func TestWithdrawAuthorization(t *testing.T) {
	f := newLockFixture()
	entry := f.createLock(t, alice, 100, testStart.Add(time.Second))
	f.clock.Advance(time.Minute)

	if _, err := f.uc.Withdraw(context.Background(), entry.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("anonymous withdraw error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.uc.Withdraw(callerCtx(mallory), entry.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("foreign withdraw error = %v, want ErrUnauthorized", err)
	}
	if len(f.transferer.Calls) != 0 {
		t.Fatal("unauthorized withdrawals must not transfer")
	}
}

func TestWithdrawUnknownEntry(t *testing.T) {
	f := newLockFixture()
	if _, err := f.uc.Withdraw(callerCtx(alice), "missing"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("error = %v, want ErrEntryNotFound", err)
	}
}

func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	f := newLockFixture()
	entry := f.createLock(t, alice, 100, testStart.Add(time.Second))
	f.clock.Advance(time.Minute)

	f.transferer.TransferFunc = func(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
		return errors.New("payout gateway down")
	}

	_, err := f.uc.Withdraw(callerCtx(alice), entry.ID)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("error = %v, want ErrTransferFailed", err)
	}
	if f.txManager.LastTx.Committed {
		t.Fatal("failed transfer must not commit the transaction")
	}
	if !f.txManager.LastTx.RolledBack {
		t.Fatal("failed transfer must roll the transaction back")
	}
}

// A recipient that re-enters Withdraw during the transfer finds the entry
// already marked disbursed.
func TestWithdrawReentrancyRejected(t *testing.T) {
	f := newLockFixture()
	entry := f.createLock(t, alice, 100, testStart.Add(time.Second))
	f.clock.Advance(time.Minute)
	ctx := callerCtx(alice)

	var reentrantErr error
	f.transferer.TransferFunc = func(innerCtx context.Context, to domain.Address, amount decimal.Decimal) error {
		if len(f.transferer.Calls) == 1 {
			_, reentrantErr = f.uc.Withdraw(ctx, entry.ID)
		}
		return nil
	}

	paid, err := f.uc.Withdraw(ctx, entry.ID)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !paid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("paid = %s, want 100", paid)
	}
	if !errors.Is(reentrantErr, domain.ErrAlreadyDisbursed) {
		t.Fatalf("re-entrant withdraw error = %v, want ErrAlreadyDisbursed", reentrantErr)
	}
	if len(f.transferer.Calls) != 1 {
		t.Fatalf("expected exactly one transfer, got %d", len(f.transferer.Calls))
	}
}

func TestExtendLockMonotonicDeadline(t *testing.T) {
	f := newLockFixture()
	deadline := testStart.Add(time.Hour)
	entry := f.createLock(t, alice, 100, deadline)
	ctx := callerCtx(alice)

	if _, err := f.uc.ExtendLock(ctx, entry.ID, deadline.Add(-time.Minute)); !errors.Is(err, domain.ErrDeadlineNotExtended) {
		t.Errorf("shorten error = %v, want ErrDeadlineNotExtended", err)
	}
	if _, err := f.uc.ExtendLock(ctx, entry.ID, deadline); !errors.Is(err, domain.ErrDeadlineNotExtended) {
		t.Errorf("same deadline error = %v, want ErrDeadlineNotExtended", err)
	}
	if _, err := f.uc.ExtendLock(callerCtx(mallory), entry.ID, deadline.Add(time.Hour)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("foreign extend error = %v, want ErrUnauthorized", err)
	}

	extended, err := f.uc.ExtendLock(ctx, entry.ID, deadline.Add(time.Hour))
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if !extended.Deadline.Equal(deadline.Add(time.Hour)) {
		t.Errorf("deadline = %v, want %v", extended.Deadline, deadline.Add(time.Hour))
	}

	events := f.outbox.ByType(domain.EventTypeLockExtended)
	if len(events) != 1 {
		t.Fatalf("expected one lock.extended event, got %d", len(events))
	}
}

func TestExtendLockAfterDisbursement(t *testing.T) {
	f := newLockFixture()
	entry := f.createLock(t, alice, 100, testStart.Add(time.Second))
	ctx := callerCtx(alice)

	f.clock.Advance(time.Minute)
	if _, err := f.uc.Withdraw(ctx, entry.ID); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	if _, err := f.uc.ExtendLock(ctx, entry.ID, f.clock.Now().Add(time.Hour)); !errors.Is(err, domain.ErrAlreadyDisbursed) {
		t.Errorf("extend after disbursement error = %v, want ErrAlreadyDisbursed", err)
	}
}

// Batch withdrawal pays what is eligible and silently skips the rest.
func TestBatchWithdrawSkipsIneligible(t *testing.T) {
	f := newLockFixture()
	matured := f.createLock(t, alice, 100, testStart.Add(time.Second))
	pending := f.createLock(t, alice, 50, testStart.Add(time.Hour))
	foreign := f.createLock(t, bob, 75, testStart.Add(time.Second))

	f.clock.Set(testStart.Add(time.Minute))

	result, err := f.uc.BatchWithdraw(callerCtx(alice), []string{matured.ID, pending.ID, foreign.ID, "missing"})
	if err != nil {
		t.Fatalf("BatchWithdraw failed: %v", err)
	}

	if len(result.Withdrawn) != 1 || result.Withdrawn[0] != matured.ID {
		t.Fatalf("withdrawn = %#v, want only %s", result.Withdrawn, matured.ID)
	}
	if !result.TotalPaid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total paid = %s, want 100", result.TotalPaid)
	}
	if len(f.transferer.Calls) != 1 {
		t.Fatalf("expected one transfer, got %d", len(f.transferer.Calls))
	}

	// The skipped entries stay intact.
	kept, err := f.uc.GetLock(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("GetLock failed: %v", err)
	}
	if kept.Disbursed {
		t.Error("pending entry must survive the batch untouched")
	}
}

func TestBatchWithdrawRequiresCaller(t *testing.T) {
	f := newLockFixture()
	if _, err := f.uc.BatchWithdraw(context.Background(), []string{"any"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLockQueries(t *testing.T) {
	f := newLockFixture()
	deadline := testStart.Add(time.Hour)
	entry := f.createLock(t, alice, 100, deadline)
	f.createLock(t, alice, 50, deadline)
	f.createLock(t, bob, 25, deadline)

	remaining, err := f.uc.RemainingTime(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("RemainingTime failed: %v", err)
	}
	if remaining != time.Hour {
		t.Errorf("remaining = %v, want 1h", remaining)
	}

	withdrawable, err := f.uc.IsWithdrawable(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("IsWithdrawable failed: %v", err)
	}
	if withdrawable {
		t.Error("entry must not be withdrawable before the deadline")
	}

	listed, err := f.uc.ListByBeneficiary(context.Background(), alice, 10, 0)
	if err != nil {
		t.Fatalf("ListByBeneficiary failed: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("listed = %d entries, want 2", len(listed))
	}

	total, err := f.uc.TotalLocked(context.Background())
	if err != nil {
		t.Fatalf("TotalLocked failed: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(175)) {
		t.Errorf("total locked = %s, want 175", total)
	}
}
