package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction.
	// This prevents long-running transactions from blocking tables.
	DefaultTransactionTimeout = 10 * time.Second

	// WinnerCacheTTL is how long closed-round winner lookups are cached.
	// Closed rounds are immutable, so the TTL only bounds cache growth.
	WinnerCacheTTL = 24 * time.Hour
)
