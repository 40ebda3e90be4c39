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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, payment_id, user_id, amount, currency, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  payment_id=$2, user_id=$3, amount=$4, currency=$5, status=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.PaymentID, p.UserID, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	q := `SELECT id, payment_id, user_id, amount, currency, status, created_at, updated_at FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.PaymentID, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// UpdateStatusIf transitions only while the current status is in the allowed
// set, so a late failure signal can never overwrite a paid order.
func (r *paymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, orderID string, status model.PaymentStatus, paymentID string, allowed ...model.PaymentStatus) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       payment_id = COALESCE(NULLIF($3, ''), payment_id),
       updated_at = NOW()
 WHERE id = $1
   AND status = ANY($4);`

	from := make([]string, 0, len(allowed))
	for _, s := range allowed {
		from = append(from, string(s))
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, string(status), paymentID, from)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListByStatusOlderThan(ctx context.Context, tx repository.Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, payment_id, user_id, amount, currency, status, created_at, updated_at FROM payments WHERE status=$1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status), olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		if err := rows.Scan(&p.ID, &p.PaymentID, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}
