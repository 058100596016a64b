package usecase

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/metrics"
)

// DrawUseCase implements the draw policy: fixed-fee entries accumulate in
// the open round's pool until the owner triggers a draw, which pays the
// whole pool to one uniformly selected slot and opens the next round.
type DrawUseCase struct {
	txManager   TransactionManager
	entryRepo   EntryRepository
	roundRepo   RoundRepository
	custodyRepo CustodyRepository
	paramsRepo  ParamsRepository
	outboxRepo  OutboxRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	clock       Clock
	picker      WinnerPicker
	cache       Cache
	disburser   *disburser
	metrics     *metrics.Metrics
}

func NewDrawUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	roundRepo RoundRepository,
	custodyRepo CustodyRepository,
	paramsRepo ParamsRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	clock Clock,
	transferer Transferer,
	picker WinnerPicker,
	cache Cache,
	metrics *metrics.Metrics,
) *DrawUseCase {
	return &DrawUseCase{
		txManager:   txManager,
		entryRepo:   entryRepo,
		roundRepo:   roundRepo,
		custodyRepo: custodyRepo,
		paramsRepo:  paramsRepo,
		outboxRepo:  outboxRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		clock:       clock,
		picker:      picker,
		cache:       cache,
		disburser:   &disburser{custodyRepo: custodyRepo, transferer: transferer},
		metrics:     metrics,
	}
}

// Enter buys one pool slot in the open round. The amount must equal the
// round's entry fee exactly; one identity may hold many slots, and wins
// with probability proportional to slots held.
func (uc *DrawUseCase) Enter(ctx context.Context, amount decimal.Decimal) (*domain.Entry, error) {
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

	// Locking the open round row serializes entries against a concurrent draw.
	round, err := uc.roundRepo.GetOpenForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}
	if !amount.Equal(round.EntryFee) {
		return nil, domain.ErrEntryFeeMismatch
	}

	now := uc.clock.Now().UTC()
	roundNumber := round.Number
	entry := &domain.Entry{
		ID:          uc.idGen.Generate(),
		Policy:      domain.PolicyDraw,
		Beneficiary: caller,
		Amount:      amount,
		Round:       &roundNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.custodyRepo.Adjust(txCtx, tx, domain.PolicyDraw, amount, decimal.Zero, now); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeDraw,
		EventType:     domain.EventTypeDrawEntered,
		Payload: map[string]any{
			"entry_id": entry.ID,
			"round":    roundNumber,
			"entrant":  caller.String(),
			"amount":   amount.String(),
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
		uc.metrics.DrawEntries.Inc()
	}

	return entry, nil
}

// PickWinner closes the open round: it selects one slot uniformly, pays the
// entire pool to that slot's owner, records the winner permanently, and
// opens the next round. Pool clearing, the winner record, and the payout
// commit or roll back together; a failed payout leaves the round open and
// the pool intact.
func (uc *DrawUseCase) PickWinner(ctx context.Context) (*domain.Round, error) {
	caller, err := uc.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	start := uc.clock.Now().UTC()
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	round, err := uc.roundRepo.GetOpenForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	slots, err := uc.entryRepo.ListActiveByRoundForUpdate(txCtx, tx, round.Number)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, domain.ErrEmptyPool
	}

	idx, err := uc.picker.Pick(len(slots))
	if err != nil {
		return nil, err
	}
	winner := slots[idx].Beneficiary

	prize := decimal.Zero
	for _, slot := range slots {
		prize = prize.Add(slot.Amount)
	}

	now := uc.clock.Now().UTC()
	if err := uc.entryRepo.MarkRoundDisbursed(txCtx, tx, round.Number, now); err != nil {
		return nil, err
	}
	if err := uc.roundRepo.Close(txCtx, tx, round.Number, winner, prize, now); err != nil {
		return nil, err
	}

	next := &domain.Round{
		Number:    round.Number + 1,
		EntryFee:  round.EntryFee,
		Status:    domain.RoundStatusOpen,
		CreatedAt: now,
	}
	if err := uc.roundRepo.Create(txCtx, tx, next); err != nil {
		return nil, err
	}

	if err := uc.disburser.payOut(txCtx, tx, domain.PolicyDraw, winner, prize, decimal.Zero, now); err != nil {
		if uc.metrics != nil {
			uc.metrics.DisburseFailures.WithLabelValues(string(domain.PolicyDraw)).Inc()
		}
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   roundKey(round.Number),
		AggregateType: domain.AggregateTypeDraw,
		EventType:     domain.EventTypeDrawCompleted,
		Payload: map[string]any{
			"round":      round.Number,
			"winner":     winner.String(),
			"prize":      prize.String(),
			"pool_size":  len(slots),
			"next_round": next.Number,
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
		uc.metrics.DrawsCompleted.Inc()
		uc.metrics.PayoutAmount.WithLabelValues(string(domain.PolicyDraw)).Observe(prize.InexactFloat64())
		uc.metrics.DrawDuration.Observe(uc.clock.Now().UTC().Sub(start).Seconds())
	}

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionDrawPick),
			ResourceType: "round",
			ResourceID:   roundKey(round.Number),
			AfterState:   domain.JSON{"winner": winner.String(), "prize": prize.String()},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	round.Status = domain.RoundStatusClosed
	round.Winner = &winner
	round.Prize = &prize
	round.DrawnAt = &now
	return round, nil
}

// SetEntryFee changes the open round's entry fee. Rejected while the pool
// is non-empty to avoid mid-round fee ambiguity.
func (uc *DrawUseCase) SetEntryFee(ctx context.Context, fee decimal.Decimal) (*domain.Round, error) {
	caller, err := uc.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(fee); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	round, err := uc.roundRepo.GetOpenForUpdate(txCtx, tx)
	if err != nil {
		return nil, err
	}

	slots, err := uc.entryRepo.ListActiveByRoundForUpdate(txCtx, tx, round.Number)
	if err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		return nil, domain.ErrPoolNotEmpty
	}

	now := uc.clock.Now().UTC()
	if err := uc.roundRepo.UpdateEntryFee(txCtx, tx, round.Number, fee); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   roundKey(round.Number),
		AggregateType: domain.AggregateTypeDraw,
		EventType:     domain.EventTypeDrawFeeChanged,
		Payload: map[string]any{
			"round":   round.Number,
			"old_fee": round.EntryFee.String(),
			"new_fee": fee.String(),
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

	if uc.auditRepo != nil {
		auditLog := &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Caller:       caller.String(),
			Action:       string(domain.AuditActionDrawSetFee),
			ResourceType: "round",
			ResourceID:   roundKey(round.Number),
			AfterState:   domain.JSON{"entry_fee": fee.String()},
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}
		_ = uc.auditRepo.Create(ctx, auditLog)
	}

	round.EntryFee = fee
	return round, nil
}

// CurrentRound returns the open round.
func (uc *DrawUseCase) CurrentRound(ctx context.Context) (*domain.Round, error) {
	return uc.roundRepo.GetOpen(ctx)
}

// Pool lists the open round's active slots.
func (uc *DrawUseCase) Pool(ctx context.Context) (*domain.Round, []*domain.Entry, error) {
	round, err := uc.roundRepo.GetOpen(ctx)
	if err != nil {
		return nil, nil, err
	}
	slots, err := uc.entryRepo.ListActiveByRound(ctx, round.Number)
	if err != nil {
		return nil, nil, err
	}
	return round, slots, nil
}

// PrizePool returns the open round's pool balance.
func (uc *DrawUseCase) PrizePool(ctx context.Context) (decimal.Decimal, error) {
	return uc.entryRepo.SumActive(ctx, domain.PolicyDraw)
}

// WinnerByRound looks up a closed round's recorded winner. Closed rounds
// are immutable, so the lookup is served through the cache.
func (uc *DrawUseCase) WinnerByRound(ctx context.Context, number int64) (*domain.Round, error) {
	cacheKey := "draw:winner:" + roundKey(number)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var round domain.Round
			if err := json.Unmarshal([]byte(cached), &round); err == nil {
				return &round, nil
			}
		}
	}

	round, err := uc.roundRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if round.Status != domain.RoundStatusClosed || round.Winner == nil {
		return nil, domain.ErrRoundNotFound
	}

	if uc.cache != nil {
		if data, err := json.Marshal(round); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, string(data), WinnerCacheTTL)
		}
	}

	return round, nil
}

func (uc *DrawUseCase) requireOwner(ctx context.Context) (domain.Address, error) {
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

func roundKey(number int64) string {
	return "round-" + strconv.FormatInt(number, 10)
}
