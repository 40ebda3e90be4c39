package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

// InsertIfNew relies on the unique constraint on event_id: a duplicate
// delivery inserts zero rows and the caller treats the event as already
// applied.
func (r *webhookEventRepo) InsertIfNew(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (event_id, kind, raw_kind, received_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (event_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, ev.EventID, string(ev.Kind), ev.RawKind, ev.ReceivedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
