package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, username, email, customer_id, subscription_id, created_at, updated_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, username, email, customer_id, subscription_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  email=$3, customer_id=$4, subscription_id=$5, updated_at=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.Email, u.CustomerID, u.SubscriptionID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `WHERE id=$1`, id)
}

func (r *userRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	return r.findOne(ctx, tx, `WHERE username=$1`, username)
}

func (r *userRepo) FindByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (*model.User, error) {
	return r.findOne(ctx, tx, `WHERE customer_id=$1`, customerID)
}

func (r *userRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ` + where
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CustomerID, &u.SubscriptionID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

// SetCustomerIDIfEmpty is the conflict-resolution half of the lazy customer
// creation guard: the write lands only while customer_id is still NULL.
func (r *userRepo) SetCustomerIDIfEmpty(ctx context.Context, tx repository.Tx, userID, customerID string) (bool, error) {
	const q = `UPDATE users SET customer_id=$2, updated_at=NOW() WHERE id=$1 AND customer_id IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, customerID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *userRepo) LinkSubscription(ctx context.Context, tx repository.Tx, userID, subscriptionID string) error {
	const q = `UPDATE users SET subscription_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, subscriptionID)
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
