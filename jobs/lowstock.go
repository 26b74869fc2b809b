package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/kardexlabs/kardex/internal/ledger"
)

// LowStockScanner reports balances that dropped under their configured
// minimum. The report is a log line per key; alert routing sits on top of the
// structured logs.
type LowStockScanner struct {
	balances *ledger.Repository
	logger   *slog.Logger
}

// NewLowStockScanner constructs the scanner.
func NewLowStockScanner(balances *ledger.Repository, logger *slog.Logger) *LowStockScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanner{balances: balances, logger: logger}
}

// Run reports every balance under its minimum for the company.
func (s *LowStockScanner) Run(ctx context.Context, companyID int64) error {
	balances, err := s.balances.ListBelowMinimum(ctx, companyID)
	if err != nil {
		return err
	}
	for _, b := range balances {
		s.logger.Warn("stock below minimum",
			slog.Int64("company_id", b.CompanyID),
			slog.Int64("location_id", b.LocationID),
			slog.Int64("product_id", b.ProductID),
			slog.String("current_stock", b.CurrentStock.String()),
			slog.String("minimum_stock", b.MinimumStock.String()))
	}
	s.logger.Info("low stock scan finished",
		slog.Int64("company_id", companyID),
		slog.Int("below_minimum", len(balances)))
	return nil
}

// Handle adapts the scanner to an asynq task handler.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CompanyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return s.Run(ctx, payload.CompanyID)
}
