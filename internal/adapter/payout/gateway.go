package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/custody/internal/domain"
)

// Gateway implements usecase.Transferer against an external payout
// service over HTTP. The caller has already marked the disbursement in
// its own transaction, so the gateway only retries errors that cannot
// have reached the remote side in a conflicting way: network failures
// and 5xx responses. 4xx responses are returned immediately.
type Gateway struct {
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
	maxRetries uint64
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// NewGateway creates a Gateway for the payout service at baseURL.
func NewGateway(baseURL string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		maxRetries: 3,
	}
}

// Transfer posts a transfer order to the payout service.
func (g *Gateway) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
	body, err := json.Marshal(transferRequest{
		To:     to.String(),
		Amount: amount.String(),
	})
	if err != nil {
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.maxRetries),
		ctx,
	)

	return backoff.Retry(func() error {
		err := g.send(ctx, body)
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if !errors.As(err, &permanent) {
			g.logger.Warn("payout transfer failed, retrying",
				slog.String("to", to.String()),
				slog.String("error", err.Error()))
		}
		return err
	}, b)
}

func (g *Gateway) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("payout service returned %d: %s", resp.StatusCode, respBody)

	if resp.StatusCode >= 500 {
		return err
	}
	return backoff.Permanent(err)
}
