package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/adapter/http/handler"
	apimiddleware "github.com/iho/custody/internal/adapter/http/middleware"
	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimit = 1
		cfg.RateBurst = 1
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"beneficiary":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","amount":"100","deadline":"2030-01-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/locks/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_MutatingRoutesRequireCaller(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stakes/claim", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthenticated claim to return 401, got %d", rec.Code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/locks/",
		"GET /api/v1/locks/{id}",
		"POST /api/v1/locks/{id}/withdraw",
		"POST /api/v1/draw/enter",
		"POST /api/v1/draw/pick",
		"GET /api/v1/draw/rounds/{number}/winner",
		"POST /api/v1/stakes/",
		"POST /api/v1/stakes/unstake",
		"GET /api/v1/ledger/consistency",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		LockHandler:   handler.NewLockHandler(&stubLockService{}),
		DrawHandler:   handler.NewDrawHandler(&stubDrawService{}),
		StakeHandler:  handler.NewStakeHandler(&stubStakeService{}),
		LedgerHandler: handler.NewLedgerHandler(&stubLedgerService{}, &stubAuditRepository{}),
		HealthHandler: &handler.HealthHandler{},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubLockService struct{}

func (stubLockService) CreateLock(ctx context.Context, input usecase.CreateLockInput) (*domain.Entry, error) {
	return &domain.Entry{ID: "lock", Policy: domain.PolicyLock}, nil
}

func (stubLockService) Withdraw(ctx context.Context, entryID string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubLockService) BatchWithdraw(ctx context.Context, entryIDs []string) (*usecase.BatchWithdrawResult, error) {
	return &usecase.BatchWithdrawResult{TotalPaid: decimal.Zero}, nil
}

func (stubLockService) ExtendLock(ctx context.Context, entryID string, newDeadline time.Time) (*domain.Entry, error) {
	return &domain.Entry{ID: entryID, Policy: domain.PolicyLock}, nil
}

func (stubLockService) GetLock(ctx context.Context, entryID string) (*domain.Entry, error) {
	return &domain.Entry{ID: entryID, Policy: domain.PolicyLock}, nil
}

func (stubLockService) ListByBeneficiary(ctx context.Context, beneficiary domain.Address, limit, offset int) ([]*domain.Entry, error) {
	return []*domain.Entry{}, nil
}

func (stubLockService) RemainingTime(ctx context.Context, entryID string) (time.Duration, error) {
	return 0, nil
}

func (stubLockService) IsWithdrawable(ctx context.Context, entryID string) (bool, error) {
	return false, nil
}

func (stubLockService) TotalLocked(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubDrawService struct{}

func (stubDrawService) Enter(ctx context.Context, amount decimal.Decimal) (*domain.Entry, error) {
	return &domain.Entry{ID: "slot", Policy: domain.PolicyDraw}, nil
}

func (stubDrawService) PickWinner(ctx context.Context) (*domain.Round, error) {
	return &domain.Round{Number: 1}, nil
}

func (stubDrawService) SetEntryFee(ctx context.Context, fee decimal.Decimal) (*domain.Round, error) {
	return &domain.Round{Number: 1, EntryFee: fee}, nil
}

func (stubDrawService) CurrentRound(ctx context.Context) (*domain.Round, error) {
	return &domain.Round{Number: 1, Status: domain.RoundStatusOpen}, nil
}

func (stubDrawService) Pool(ctx context.Context) (*domain.Round, []*domain.Entry, error) {
	return &domain.Round{Number: 1}, []*domain.Entry{}, nil
}

func (stubDrawService) PrizePool(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubDrawService) WinnerByRound(ctx context.Context, number int64) (*domain.Round, error) {
	return &domain.Round{Number: number}, nil
}

type stubStakeService struct{}

func (stubStakeService) Stake(ctx context.Context, amount decimal.Decimal) (*domain.Stake, error) {
	return &domain.Stake{Principal: amount}, nil
}

func (stubStakeService) ClaimRewards(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubStakeService) Unstake(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubStakeService) CalculateReward(ctx context.Context, address domain.Address) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubStakeService) GetStake(ctx context.Context, address domain.Address) (*domain.Stake, error) {
	return &domain.Stake{Address: address}, nil
}

func (stubStakeService) TotalStaked(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubStakeService) SetRewardRate(ctx context.Context, rateBps int64) error { return nil }

func (stubStakeService) FundRewards(ctx context.Context, amount decimal.Decimal) error { return nil }

func (stubStakeService) EmergencyWithdraw(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubLedgerService struct{}

func (stubLedgerService) CheckConsistency(ctx context.Context) ([]usecase.PolicyReport, error) {
	return []usecase.PolicyReport{}, nil
}

type stubAuditRepository struct{}

func (stubAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error { return nil }

func (stubAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return nil
}

func (stubAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	return []*domain.AuditLog{}, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
