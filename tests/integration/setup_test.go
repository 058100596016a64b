package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"

	adaptershttp "github.com/iho/custody/internal/adapter/http"
	"github.com/iho/custody/internal/adapter/http/handler"
	apimiddleware "github.com/iho/custody/internal/adapter/http/middleware"
	"github.com/iho/custody/internal/adapter/payout"
	"github.com/iho/custody/internal/adapter/randomness"
	postgresrepo "github.com/iho/custody/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/custody/internal/adapter/repository/redis"
	"github.com/iho/custody/internal/domain"
	infraredis "github.com/iho/custody/internal/infrastructure/redis"
	"github.com/iho/custody/internal/usecase"
	"github.com/iho/custody/tests/testutil"
)

const (
	ownerAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	aliceAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	bobAddr   = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// newTestServer wires the full HTTP stack against a real database and an
// in-process redis, with payouts logged instead of sent.
func newTestServer(t *testing.T, testDB *testutil.TestDB) http.Handler {
	t.Helper()

	ctx := context.Background()
	testDB.TruncateAll(ctx)
	testDB.SeedParams(ctx, domain.Address(ownerAddr), 500)
	testDB.SeedOpenRound(ctx, 1, decimal.NewFromInt(5))

	mr := miniredis.RunT(t)
	redisClient, err := infraredis.NewClient(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	pool := testDB.Pool
	txManager := postgresrepo.NewTxManager(pool)
	entryRepo := postgresrepo.NewEntryRepository(pool)
	roundRepo := postgresrepo.NewRoundRepository(pool)
	stakeRepo := postgresrepo.NewStakeRepository(pool)
	custodyRepo := postgresrepo.NewCustodyRepository(pool)
	paramsRepo := postgresrepo.NewParamsRepository(pool)
	outboxRepo := postgresrepo.NewOutboxRepository(pool)
	auditRepo := postgresrepo.NewAuditRepository(pool)
	ledgerRepo := postgresrepo.NewLedgerRepository(pool)
	idGen := postgresrepo.NewULIDGenerator()
	cache := redisrepo.NewCache(redisClient)
	idempotencyStore := redisrepo.NewIdempotencyStore(redisClient)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	transferer := payout.NewLogTransferer(quiet)
	clock := usecase.SystemClock{}
	picker := randomness.NewCryptoPicker()

	lockUC := usecase.NewLockUseCase(txManager, entryRepo, custodyRepo, outboxRepo, auditRepo, idGen, clock, transferer, nil)
	drawUC := usecase.NewDrawUseCase(txManager, entryRepo, roundRepo, custodyRepo, paramsRepo, outboxRepo, auditRepo, idGen, clock, transferer, picker, cache, nil)
	stakeUC := usecase.NewStakeUseCase(txManager, stakeRepo, custodyRepo, paramsRepo, outboxRepo, auditRepo, idGen, clock, transferer, nil)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo)

	return adaptershttp.NewRouter(adaptershttp.RouterConfig{
		LockHandler:      handler.NewLockHandler(lockUC),
		DrawHandler:      handler.NewDrawHandler(drawUC),
		StakeHandler:     handler.NewStakeHandler(stakeUC),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC, auditRepo),
		HealthHandler:    &handler.HealthHandler{},
		IdempotencyStore: idempotencyStore,
	})
}

// doJSON issues a request against the router with the given caller header
// and decodes the JSON response into out when out is non-nil.
func doJSON(t *testing.T, router http.Handler, method, path, caller string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(apimiddleware.CallerHeaderKey, caller)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}

	return rec.Code
}
