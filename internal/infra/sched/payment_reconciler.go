package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/repository"
	"razorpay-subscription-service/internal/infra/metrics"
)

// PaymentReconciler periodically scans for orders stuck in created state past
// a staleness threshold. It only observes and reports; state transitions stay
// driven by verified confirmations and webhooks, so a stale order here means
// a client abandoned checkout or a delivery went missing and needs a look.
type PaymentReconciler struct {
	payments   repository.PaymentRepository
	interval   time.Duration
	staleAfter time.Duration
	log        *zerolog.Logger
}

func NewPaymentReconciler(payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &PaymentReconciler{payments: payments, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.payments.ListByStatusOlderThan(ctx, nil, model.PaymentStatusCreated, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list stale orders failed")
		return
	}
	metrics.SetReconcilerStalePayments(len(stale))
	for _, p := range stale {
		w.log.Warn().
			Str("order_id", p.ID).
			Int64("amount", p.Amount).
			Str("currency", p.Currency).
			Time("created_at", p.CreatedAt).
			Msg("order still unconfirmed past staleness threshold")
	}
}
