package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length")
)

// Validation constants
const (
	// MaxAmount bounds a single deposit or payout, in base units.
	MaxAmount = "1000000000000000000"

	MaxDescriptionLength = 512
)

// ValidateAmount validates a deposit or payout amount. Amounts are in the
// smallest native-currency unit, so they must be positive integers; the
// decimal representation is arbitrary precision, which makes overflow a
// validation concern rather than an arithmetic one.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidDeposit
	}

	if !amount.IsInteger() {
		return fmt.Errorf("%w: fractional base units are not representable", ErrInvalidDeposit)
	}

	maxAmount, _ := decimal.NewFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidateDescription validates a free-form entry description.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrDescriptionTooLong, MaxDescriptionLength)
	}
	return nil
}
