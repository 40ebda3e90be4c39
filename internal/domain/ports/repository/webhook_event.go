package repository

import (
	"context"

	"razorpay-subscription-service/internal/domain/model"
)

// WebhookEventRepository records delivered gateway notifications for
// idempotent processing.
type WebhookEventRepository interface {
	// InsertIfNew persists ev and reports false when the event id was
	// already recorded (duplicate delivery).
	InsertIfNew(ctx context.Context, tx Tx, ev *model.WebhookEvent) (bool, error)
}
