package chain

import (
	"context"

	"github.com/xtrntr/kaspay/internal/models"
)

// Checker reports the on-chain payment status of an order
type Checker interface {
	Check(ctx context.Context, order models.Order) (models.Status, error)
}

// StubChecker stands in for a real chain indexer. It never inspects the
// chain and always reports pending, so a manual status check leaves a
// pending order pending and resets anything else back to pending.
type StubChecker struct{}

// Check always returns pending.
// TODO: query a chain indexer for transfers to the order's address
// matching its asset amount, and require a confirmation depth before
// reporting confirmed.
func (StubChecker) Check(ctx context.Context, order models.Order) (models.Status, error) {
	return models.StatusPending, nil
}
