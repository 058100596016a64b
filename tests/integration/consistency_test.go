package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/iho/custody/internal/adapter/http/dto"
	"github.com/iho/custody/tests/testutil"
)

// TestLedgerConsistencyAfterMixedTraffic exercises all three policies and
// verifies that every custody balance still matches its attributed value.
func TestLedgerConsistencyAfterMixedTraffic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	router := newTestServer(t, testDB)

	code := doJSON(t, router, http.MethodPost, "/api/v1/locks/", aliceAddr, map[string]any{
		"beneficiary": bobAddr,
		"amount":      "300",
		"deadline":    time.Now().UTC().Add(time.Hour).Format(time.RFC3339Nano),
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected 201 creating lock, got %d", code)
	}

	code = doJSON(t, router, http.MethodPost, "/api/v1/draw/enter", aliceAddr, map[string]any{
		"amount": "5",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected 201 entering pool, got %d", code)
	}

	code = doJSON(t, router, http.MethodPost, "/api/v1/stakes/fund", ownerAddr, map[string]any{
		"amount": "100",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200 funding rewards, got %d", code)
	}

	code = doJSON(t, router, http.MethodPost, "/api/v1/stakes/", bobAddr, map[string]any{
		"amount": "40",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected 201 staking, got %d", code)
	}

	var report dto.ConsistencyResponse
	code = doJSON(t, router, http.MethodGet, "/api/v1/ledger/consistency", "", nil, &report)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from consistency check, got %d", code)
	}
	if !report.Consistent || report.Status != "consistent" {
		t.Fatalf("expected a consistent ledger, got %+v", report)
	}
	if len(report.Policies) != 3 {
		t.Fatalf("expected a report per policy, got %d", len(report.Policies))
	}

	// Settling the draw keeps the books balanced
	var settled dto.RoundResponse
	code = doJSON(t, router, http.MethodPost, "/api/v1/draw/pick", ownerAddr, nil, &settled)
	if code != http.StatusOK {
		t.Fatalf("expected 200 drawing winner, got %d", code)
	}

	code = doJSON(t, router, http.MethodGet, "/api/v1/ledger/consistency", "", nil, &report)
	if code != http.StatusOK {
		t.Fatalf("expected 200 after settlement, got %d", code)
	}
	if !report.Consistent {
		t.Fatalf("expected ledger to stay consistent after draw, got %+v", report)
	}

	// Every mutation above left an audit trail
	var logs []dto.AuditLogResponse
	code = doJSON(t, router, http.MethodGet, "/api/v1/ledger/audit?caller="+ownerAddr, "", nil, &logs)
	if code != http.StatusOK {
		t.Fatalf("expected 200 listing audit logs, got %d", code)
	}
	if len(logs) == 0 {
		t.Fatal("expected audit entries for the owner's actions")
	}
}
