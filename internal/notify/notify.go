// Package notify delivers post-checkout notifications. Delivery is
// best-effort and asynchronous relative to the committed order: the order is
// final once the transaction commits, so notification failures are logged and
// dropped rather than surfaced to the buyer.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher records order confirmations to the structured log. It stands
// in for a real mail/SMS provider; swapping one in means implementing the
// same OrderPlaced hook.
type LogDispatcher struct {
	lg *zap.Logger
}

// NewLogDispatcher creates a dispatcher that writes confirmations to lg.
func NewLogDispatcher(lg *zap.Logger) *LogDispatcher {
	return &LogDispatcher{lg: lg}
}

// OrderPlaced emits a confirmation record for a committed order.
func (d *LogDispatcher) OrderPlaced(_ context.Context, orderID string, email string) {
	d.lg.Info("order confirmation dispatched",
		zap.String("order_id", orderID),
		zap.String("email", email),
	)
}
