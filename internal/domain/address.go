package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Address is an opaque identity: 0x followed by 40 hex digits, normalized
// to lower case. It carries no checksum or network meaning here; the
// payout gateway is the authority on where value actually lands.
type Address string

// ZeroAddress is reserved and never valid as a beneficiary.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ParseAddress normalizes a raw address string and validates its form.
func ParseAddress(raw string) (Address, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !addressPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	return Address(normalized), nil
}

// Validate checks the address form and rejects the reserved zero address.
func (a Address) Validate() error {
	if a.IsZero() {
		return ErrInvalidBeneficiary
	}
	if !addressPattern.MatchString(string(a)) {
		return ErrInvalidAddress
	}

	return nil
}

// IsZero reports whether the address is empty or the reserved zero value.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// String returns the normalized form.
func (a Address) String() string {
	return string(a)
}
