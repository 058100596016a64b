package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

// MockEntryRepository is an in-memory implementation of EntryRepository.
// Mutations apply immediately; insertion order is preserved so winner
// selection over pool slots is deterministic in tests.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
	order   []string

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error)
	MarkDisbursedFunc    func(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error
	UpdateDeadlineFunc   func(ctx context.Context, tx usecase.Transaction, id string, deadline, updatedAt time.Time) error
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
	}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockEntryRepository) MarkDisbursed(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	if m.MarkDisbursedFunc != nil {
		return m.MarkDisbursedFunc(ctx, tx, id, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.Disbursed = true
	e.Amount = decimal.Zero
	e.UpdatedAt = updatedAt
	return nil
}

func (m *MockEntryRepository) UpdateDeadline(ctx context.Context, tx usecase.Transaction, id string, deadline, updatedAt time.Time) error {
	if m.UpdateDeadlineFunc != nil {
		return m.UpdateDeadlineFunc(ctx, tx, id, deadline, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	d := deadline
	e.Deadline = &d
	e.UpdatedAt = updatedAt
	return nil
}

func (m *MockEntryRepository) ListByBeneficiary(ctx context.Context, policy domain.Policy, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Policy == policy && e.Beneficiary == beneficiary {
			entries = append(entries, e)
		}
	}
	if offset > len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockEntryRepository) ListActiveByRound(ctx context.Context, round int64) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Policy == domain.PolicyDraw && !e.Disbursed && e.Round != nil && *e.Round == round {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockEntryRepository) ListActiveByRoundForUpdate(ctx context.Context, tx usecase.Transaction, round int64) ([]*domain.Entry, error) {
	return m.ListActiveByRound(ctx, round)
}

func (m *MockEntryRepository) MarkRoundDisbursed(ctx context.Context, tx usecase.Transaction, round int64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Policy == domain.PolicyDraw && !e.Disbursed && e.Round != nil && *e.Round == round {
			e.Disbursed = true
			e.Amount = decimal.Zero
			e.UpdatedAt = updatedAt
		}
	}
	return nil
}

func (m *MockEntryRepository) SumActive(ctx context.Context, policy domain.Policy) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.Policy == policy && !e.Disbursed {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// MockRoundRepository is an in-memory implementation of RoundRepository.
type MockRoundRepository struct {
	mu     sync.RWMutex
	rounds map[int64]*domain.Round
}

func NewMockRoundRepository() *MockRoundRepository {
	return &MockRoundRepository{
		rounds: make(map[int64]*domain.Round),
	}
}

func (m *MockRoundRepository) Create(ctx context.Context, tx usecase.Transaction, round *domain.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.Number] = round
	return nil
}

func (m *MockRoundRepository) GetOpen(ctx context.Context) (*domain.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var open *domain.Round
	for _, r := range m.rounds {
		if r.Status == domain.RoundStatusOpen && (open == nil || r.Number < open.Number) {
			open = r
		}
	}
	if open == nil {
		return nil, domain.ErrRoundNotFound
	}
	return open, nil
}

func (m *MockRoundRepository) GetOpenForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.Round, error) {
	return m.GetOpen(ctx)
}

func (m *MockRoundRepository) GetByNumber(ctx context.Context, number int64) (*domain.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rounds[number]; ok {
		return r, nil
	}
	return nil, domain.ErrRoundNotFound
}

func (m *MockRoundRepository) Close(ctx context.Context, tx usecase.Transaction, number int64, winner domain.Address, prize decimal.Decimal, drawnAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[number]
	if !ok {
		return domain.ErrRoundNotFound
	}
	r.Status = domain.RoundStatusClosed
	r.Winner = &winner
	r.Prize = &prize
	r.DrawnAt = &drawnAt
	return nil
}

func (m *MockRoundRepository) UpdateEntryFee(ctx context.Context, tx usecase.Transaction, number int64, fee decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[number]
	if !ok {
		return domain.ErrRoundNotFound
	}
	r.EntryFee = fee
	return nil
}

// MockStakeRepository is an in-memory implementation of StakeRepository.
type MockStakeRepository struct {
	mu     sync.RWMutex
	stakes map[domain.Address]*domain.Stake
}

func NewMockStakeRepository() *MockStakeRepository {
	return &MockStakeRepository{
		stakes: make(map[domain.Address]*domain.Stake),
	}
}

func (m *MockStakeRepository) GetByAddress(ctx context.Context, address domain.Address) (*domain.Stake, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.stakes[address]; ok {
		return s, nil
	}
	return nil, domain.ErrNoActiveStake
}

func (m *MockStakeRepository) GetByAddressForUpdate(ctx context.Context, tx usecase.Transaction, address domain.Address) (*domain.Stake, error) {
	return m.GetByAddress(ctx, address)
}

func (m *MockStakeRepository) Upsert(ctx context.Context, tx usecase.Transaction, stake *domain.Stake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stakes[stake.Address] = stake
	return nil
}

func (m *MockStakeRepository) Delete(ctx context.Context, tx usecase.Transaction, address domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stakes, address)
	return nil
}

func (m *MockStakeRepository) TotalStaked(ctx context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, s := range m.stakes {
		sum = sum.Add(s.Principal)
	}
	return sum, nil
}

func (m *MockStakeRepository) TotalStakedTx(ctx context.Context, tx usecase.Transaction) (decimal.Decimal, error) {
	return m.TotalStaked(ctx)
}

// MockCustodyRepository is an in-memory implementation of CustodyRepository.
// All three policy accounts start at zero.
type MockCustodyRepository struct {
	mu       sync.RWMutex
	accounts map[domain.Policy]*domain.CustodyAccount

	AdjustFunc func(ctx context.Context, tx usecase.Transaction, policy domain.Policy, balanceDelta, reserveDelta decimal.Decimal, updatedAt time.Time) error
}

func NewMockCustodyRepository() *MockCustodyRepository {
	accounts := make(map[domain.Policy]*domain.CustodyAccount)
	for _, p := range []domain.Policy{domain.PolicyLock, domain.PolicyDraw, domain.PolicyAccrual} {
		accounts[p] = &domain.CustodyAccount{
			Policy:        p,
			Balance:       decimal.Zero,
			RewardReserve: decimal.Zero,
		}
	}
	return &MockCustodyRepository{accounts: accounts}
}

func (m *MockCustodyRepository) Get(ctx context.Context, policy domain.Policy) (*domain.CustodyAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[policy], nil
}

func (m *MockCustodyRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, policy domain.Policy) (*domain.CustodyAccount, error) {
	return m.Get(ctx, policy)
}

func (m *MockCustodyRepository) Adjust(ctx context.Context, tx usecase.Transaction, policy domain.Policy, balanceDelta, reserveDelta decimal.Decimal, updatedAt time.Time) error {
	if m.AdjustFunc != nil {
		return m.AdjustFunc(ctx, tx, policy, balanceDelta, reserveDelta, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[policy]
	acc.Balance = acc.Balance.Add(balanceDelta)
	acc.RewardReserve = acc.RewardReserve.Add(reserveDelta)
	acc.UpdatedAt = updatedAt
	return nil
}

// MockParamsRepository is an in-memory implementation of ParamsRepository.
type MockParamsRepository struct {
	mu     sync.RWMutex
	params *domain.Params
}

func NewMockParamsRepository(owner domain.Address, rateBps int64) *MockParamsRepository {
	return &MockParamsRepository{
		params: &domain.Params{Owner: owner, RewardRateBps: rateBps},
	}
}

func (m *MockParamsRepository) Get(ctx context.Context) (*domain.Params, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params, nil
}

func (m *MockParamsRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction) (*domain.Params, error) {
	return m.Get(ctx)
}

func (m *MockParamsRepository) UpdateRewardRate(ctx context.Context, tx usecase.Transaction, rateBps int64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.RewardRateBps = rateBps
	m.params.UpdatedAt = updatedAt
	return nil
}

func (m *MockParamsRepository) Seed(ctx context.Context, owner domain.Address, rateBps int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.params == nil {
		m.params = &domain.Params{Owner: owner, RewardRateBps: rateBps}
	}
	return nil
}

// MockOutboxRepository is an in-memory implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published {
			events = append(events, e)
			if len(events) == limit {
				break
			}
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Events[:0]
	for _, e := range m.Events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.Events = kept
	return nil
}

// ByType returns the stored events of one type.
func (m *MockOutboxRepository) ByType(eventType string) []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.EventType == eventType {
			events = append(events, e)
		}
	}
	return events
}

// MockAuditRepository is an in-memory implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	Logs []*domain.AuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var logs []*domain.AuditLog
	for _, l := range m.Logs {
		if filter.Caller != "" && l.Caller != filter.Caller {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// MockLedgerRepository serves configured per-policy totals.
type MockLedgerRepository struct {
	mu     sync.RWMutex
	totals map[domain.Policy][3]decimal.Decimal

	PolicyTotalsFunc func(ctx context.Context, policy domain.Policy) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		totals: make(map[domain.Policy][3]decimal.Decimal),
	}
}

func (m *MockLedgerRepository) SetTotals(policy domain.Policy, balance, reserve, attributed decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[policy] = [3]decimal.Decimal{balance, reserve, attributed}
}

func (m *MockLedgerRepository) PolicyTotals(ctx context.Context, policy domain.Policy) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	if m.PolicyTotalsFunc != nil {
		return m.PolicyTotalsFunc(ctx, policy)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.totals[policy]
	if !ok {
		return decimal.Zero, decimal.Zero, decimal.Zero, nil
	}
	return t[0], t[1], t[2], nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
// It hands out MockTransactions and remembers the last one so tests can
// assert commit or rollback.
type MockTransactionManager struct {
	mu     sync.Mutex
	LastTx *MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.LastTx = tx
	return tx, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + strconv.Itoa(m.counter)
}

// MockClock is a settable Clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now.UTC()}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// TransferCall records one outbound transfer.
type TransferCall struct {
	To     domain.Address
	Amount decimal.Decimal
}

// MockTransferer records transfers. TransferFunc overrides the default
// success behavior, e.g. to fail the transfer or re-enter a use case.
type MockTransferer struct {
	mu    sync.Mutex
	Calls []TransferCall

	TransferFunc func(ctx context.Context, to domain.Address, amount decimal.Decimal) error
}

func NewMockTransferer() *MockTransferer {
	return &MockTransferer{}
}

func (m *MockTransferer) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, TransferCall{To: to, Amount: amount})
	m.mu.Unlock()
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, to, amount)
	}
	return nil
}

// MockWinnerPicker returns a fixed slot index.
type MockWinnerPicker struct {
	Index int

	PickFunc func(n int) (int, error)
}

func NewMockWinnerPicker(index int) *MockWinnerPicker {
	return &MockWinnerPicker{Index: index}
}

func (m *MockWinnerPicker) Pick(n int) (int, error) {
	if m.PickFunc != nil {
		return m.PickFunc(n)
	}
	if m.Index >= n {
		return n - 1, nil
	}
	return m.Index, nil
}
