package payout

import (
	"context"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// LogTransferer records transfers without moving value. Used in
// development when no payout service is configured.
type LogTransferer struct {
	logger *slog.Logger
}

// NewLogTransferer creates a LogTransferer.
func NewLogTransferer(logger *slog.Logger) *LogTransferer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransferer{logger: logger}
}

// Transfer logs the transfer and succeeds.
func (t *LogTransferer) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
	t.logger.Info("TRANSFER",
		slog.String("to", to.String()),
		slog.String("amount", amount.String()))
	return nil
}
