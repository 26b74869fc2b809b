package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
)

// IntegrityChecker replays every kardex chain for a company and logs breaks.
// It only reads; repairing a broken chain is a manual decision.
type IntegrityChecker struct {
	balances *ledger.Repository
	history  *kardex.Repository
	logger   *slog.Logger
}

// NewIntegrityChecker constructs the checker.
func NewIntegrityChecker(balances *ledger.Repository, history *kardex.Repository, logger *slog.Logger) *IntegrityChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityChecker{balances: balances, history: history, logger: logger}
}

// Run scans all balance keys of the company, a few chains at a time.
func (c *IntegrityChecker) Run(ctx context.Context, companyID int64) error {
	keys, err := c.balances.ListKeys(ctx, companyID)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			inconsistency, err := c.history.VerifyChain(ctx, key.CompanyID, key.LocationID, key.ProductID)
			if err != nil {
				return err
			}
			if inconsistency != nil {
				c.logger.Error("kardex chain inconsistency found",
					slog.Any("error", inconsistency),
					slog.Int64("company_id", key.CompanyID),
					slog.Int64("location_id", key.LocationID),
					slog.Int64("product_id", key.ProductID))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Info("kardex integrity scan finished",
		slog.Int64("company_id", companyID),
		slog.Int("keys", len(keys)))
	return nil
}

// Handle adapts the checker to an asynq task handler.
func (c *IntegrityChecker) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CompanyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return c.Run(ctx, payload.CompanyID)
}
