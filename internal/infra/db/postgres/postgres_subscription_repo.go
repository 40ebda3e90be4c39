package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, plan_name, plan_amount, plan_currency, status, payment_id, created_at, expires_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  status=$7, payment_id=COALESCE(NULLIF($8,''), subscriptions.payment_id), expires_at=COALESCE($10, subscriptions.expires_at);`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.PlanName, s.PlanAmount, s.PlanCurrency, s.Status, s.PaymentID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT id, user_id, plan_id, plan_name, plan_amount, plan_currency, status, payment_id, created_at, expires_at FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.PlanAmount, &s.PlanCurrency, &s.Status, &s.PaymentID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, expiresAt *time.Time, paymentID string) error {
	const q = `
UPDATE subscriptions
   SET status = $2,
       expires_at = COALESCE($3, expires_at),
       payment_id = COALESCE(NULLIF($4, ''), payment_id)
 WHERE id = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), expiresAt, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
