// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/adapter"
	"razorpay-subscription-service/internal/domain/ports/repository"
	"razorpay-subscription-service/internal/infra/logging"
	"razorpay-subscription-service/internal/infra/metrics"
	"razorpay-subscription-service/internal/signature"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreateOrder creates a gateway order and the local Payment record.
	CreateOrder(ctx context.Context, userID string, amount int64, currency string) (*model.Payment, error)
	// ConfirmClientPayment applies a client-side confirmation. The signature
	// over "{orderID}|{paymentID}" must verify before any state is touched.
	ConfirmClientPayment(ctx context.Context, orderID, paymentID, sig string) (*model.Payment, error)
	// MarkPaymentFailed records a gateway failure signal. A paid order is
	// terminal-success and is never overwritten by a late failure.
	MarkPaymentFailed(ctx context.Context, orderID string) (*model.Payment, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	gateway   adapter.PaymentGateway
	tm        repository.TransactionManager
	apiSecret string
	log       *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, gateway adapter.PaymentGateway, tm repository.TransactionManager, apiSecret string, logger *zerolog.Logger) *paymentUC {
	return &paymentUC{payments: payments, gateway: gateway, tm: tm, apiSecret: apiSecret, log: logger}
}

func (u *paymentUC) CreateOrder(ctx context.Context, userID string, amount int64, currency string) (*model.Payment, error) {
	if amount <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}

	// The gateway call completes before any local write; on failure nothing
	// has been persisted.
	order, err := u.gateway.CreateOrder(ctx, amount, currency, uuid.NewString())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:        order.ID,
		UserID:    userID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    model.PaymentStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusCreated))
	u.log.Info().Str("order_id", p.ID).Int64("amount", p.Amount).Str("currency", p.Currency).Msg("order created")
	return p, nil
}

func (u *paymentUC) ConfirmClientPayment(ctx context.Context, orderID, paymentID, sig string) (*model.Payment, error) {
	if !signature.VerifyPaymentConfirmation(orderID, paymentID, sig, u.apiSecret) {
		metrics.IncPaymentVerify("fail", "bad_signature")
		return nil, domain.ErrSignatureMismatch
	}

	var out *model.Payment
	var applied bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentStatusPaid {
			// repeated delivery; nothing to re-apply
			out = p
			return nil
		}
		changed, err := u.payments.UpdateStatusIf(ctx, tx, orderID, model.PaymentStatusPaid, paymentID, model.PaymentStatusCreated)
		if err != nil {
			return err
		}
		if !changed {
			// the row moved to a terminal state under a concurrent writer
			p, err = u.payments.FindByID(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if p.Status != model.PaymentStatusPaid {
				return fmt.Errorf("order %s is %s: %w", orderID, p.Status, domain.ErrOperationFailed)
			}
			out = p
			return nil
		}
		p.Status = model.PaymentStatusPaid
		p.PaymentID = paymentID
		p.UpdatedAt = time.Now()
		out = p
		applied = true
		return nil
	})
	if err != nil {
		reason := "store_error"
		if err == domain.ErrNotFound {
			reason = "not_found"
		}
		metrics.IncPaymentVerify("fail", reason)
		return nil, err
	}
	// count the transition only once the commit is through
	if applied {
		metrics.IncPayment(string(model.PaymentStatusPaid))
		metrics.AddPaymentRevenue(out.Currency, out.Amount)
	}
	metrics.IncPaymentVerify("ok", "")
	logging.With(ctx, u.log).Info().Str("order_id", orderID).Str("payment_id", paymentID).Msg("payment confirmed")
	return out, nil
}

func (u *paymentUC) MarkPaymentFailed(ctx context.Context, orderID string) (*model.Payment, error) {
	var out *model.Payment
	var applied bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			// paid wins over a late failure signal; failed is idempotent
			out = p
			return nil
		}
		if _, err := u.payments.UpdateStatusIf(ctx, tx, orderID, model.PaymentStatusFailed, "", model.PaymentStatusCreated); err != nil {
			return err
		}
		p.Status = model.PaymentStatusFailed
		p.UpdatedAt = time.Now()
		out = p
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.IncPayment(string(model.PaymentStatusFailed))
	}
	u.log.Info().Str("order_id", orderID).Str("status", string(out.Status)).Msg("failure signal processed")
	return out, nil
}
