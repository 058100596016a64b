package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/custody/internal/domain"
	"github.com/iho/custody/internal/infrastructure/auth"
)

const testCaller = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func TestCallerMiddleware_ResolvesBearerToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	token, err := tokens.Generate(testCaller)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	mw := NewCallerMiddleware(tokens)

	var got domain.Address
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := domain.CallerFromContext(r.Context())
		if !ok {
			t.Fatalf("expected caller on context")
		}
		got = caller
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stakes/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got != testCaller {
		t.Fatalf("expected caller %s, got %s", testCaller, got)
	}
}

func TestCallerMiddleware_RejectsBadToken(t *testing.T) {
	mw := NewCallerMiddleware(auth.NewTokenManager("test-secret", time.Hour))

	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called with a bad token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stakes/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCallerMiddleware_PassesThroughWithoutHeader(t *testing.T) {
	mw := NewCallerMiddleware(auth.NewTokenManager("test-secret", time.Hour))

	called := false
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := domain.CallerFromContext(r.Context()); ok {
			t.Fatalf("expected no caller on context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/draw/round", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if !called {
		t.Fatalf("expected next handler to be called")
	}
}

func TestRequireCaller(t *testing.T) {
	handler := RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stakes/claim", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without caller, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/stakes/claim", nil)
	req = req.WithContext(domain.WithCaller(req.Context(), testCaller))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with caller, got %d", rr.Code)
	}
}
