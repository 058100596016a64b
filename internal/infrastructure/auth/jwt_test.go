package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/iho/custody/internal/domain"
)

const testAddress = domain.Address("0x00000000000000000000000000000000000000aa")

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Generate(testAddress)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	address, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if address != testAddress {
		t.Fatalf("Verify() = %s, want %s", address, testAddress)
	}
}

func TestTokenManagerRejectsZeroAddress(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	if _, err := m.Generate(domain.ZeroAddress); !errors.Is(err, domain.ErrInvalidBeneficiary) {
		t.Fatalf("expected zero address rejection, got %v", err)
	}
}

func TestTokenManagerExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Generate(testAddress)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenManagerWrongSecret(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := m.Generate(testAddress)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
