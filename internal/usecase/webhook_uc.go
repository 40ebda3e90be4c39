// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/repository"
	"razorpay-subscription-service/internal/infra/logging"
	"razorpay-subscription-service/internal/infra/metrics"
	"razorpay-subscription-service/internal/signature"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// HandleEvent authenticates the raw body, then applies at most one state
	// transition. eventID is the provider's delivery id header; it may be
	// empty. A verified but unhandled or unmatched event returns nil so the
	// sender stops retrying.
	HandleEvent(ctx context.Context, rawBody []byte, sig, eventID string) error
}

type webhookUC struct {
	users         repository.UserRepository
	subs          repository.SubscriptionRepository
	events        repository.WebhookEventRepository
	tm            repository.TransactionManager
	webhookSecret string
	log           *zerolog.Logger
}

func NewWebhookUseCase(users repository.UserRepository, subs repository.SubscriptionRepository, events repository.WebhookEventRepository, tm repository.TransactionManager, webhookSecret string, logger *zerolog.Logger) *webhookUC {
	return &webhookUC{users: users, subs: subs, events: events, tm: tm, webhookSecret: webhookSecret, log: logger}
}

// webhookEnvelope is the provider's notification wrapper. Entities we do not
// dispatch on stay unparsed.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID             string `json:"id"`
				OrderID        string `json:"order_id"`
				CustomerID     string `json:"customer_id"`
				SubscriptionID string `json:"subscription_id"`
			} `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity struct {
				ID         string `json:"id"`
				CustomerID string `json:"customer_id"`
				CurrentEnd int64  `json:"current_end"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

func (u *webhookUC) HandleEvent(ctx context.Context, rawBody []byte, sig, eventID string) error {
	// Authenticate the raw bytes before any parsing. A mismatch must leave
	// the store untouched.
	if !signature.Verify(rawBody, sig, u.webhookSecret) {
		metrics.IncWebhookSignatureFailure()
		return domain.ErrSignatureMismatch
	}
	start := time.Now()
	defer func() { metrics.ObserveWebhookDuration(time.Since(start).Seconds()) }()

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		// verified but malformed; accept so the sender does not retry forever
		u.log.Warn().Err(err).Msg("verified webhook with unparseable body")
		metrics.IncWebhookEvent("other", "discarded")
		return nil
	}

	kind, raw := model.ParseEventKind(env.Event)
	if eventID == "" {
		eventID = ulid.Make().String()
	}

	switch kind {
	case model.EventPaymentAuthorized:
		return u.applyPaymentAuthorized(ctx, &env, eventID, raw)
	case model.EventSubscriptionActivated, model.EventSubscriptionCharged,
		model.EventSubscriptionHalted, model.EventSubscriptionExpired,
		model.EventSubscriptionCreated, model.EventSubscriptionAuthenticated:
		// lifecycle notifications we acknowledge without mutating
		u.log.Debug().Str("event", raw).Str("event_id", eventID).Msg("lifecycle event acknowledged")
		metrics.IncWebhookEvent(string(kind), "discarded")
		return nil
	default:
		u.log.Info().Str("event", raw).Str("event_id", eventID).Msg("unknown event discarded")
		metrics.IncWebhookEvent("other", "discarded")
		return nil
	}
}

// applyPaymentAuthorized activates the referenced subscription and links it
// onto the owning user in one atomic unit. A missing subscription is accepted
// without mutation so the sender never retries a local lookup miss forever.
func (u *webhookUC) applyPaymentAuthorized(ctx context.Context, env *webhookEnvelope, eventID, rawKind string) error {
	pay := env.Payload.Payment.Entity
	subID := pay.SubscriptionID
	if subID == "" {
		subID = env.Payload.Subscription.Entity.ID
	}
	if subID == "" {
		u.log.Warn().Str("event_id", eventID).Msg("payment.authorized without subscription reference")
		metrics.IncWebhookEvent(string(model.EventPaymentAuthorized), "noop")
		return nil
	}

	var expiresAt *time.Time
	if end := env.Payload.Subscription.Entity.CurrentEnd; end > 0 {
		t := time.Unix(end, 0)
		expiresAt = &t
	}

	result := "applied"
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.events.InsertIfNew(ctx, tx, &model.WebhookEvent{
			EventID:    eventID,
			Kind:       model.EventPaymentAuthorized,
			RawKind:    rawKind,
			ReceivedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		if !fresh {
			result = "duplicate"
			return nil
		}

		sub, err := u.subs.FindByID(ctx, tx, subID)
		if errors.Is(err, domain.ErrNotFound) {
			result = "noop"
			return nil
		}
		if err != nil {
			return err
		}
		if !sub.Status.CanTransition(model.SubscriptionStatusActive) {
			// already active or terminal; a second delivery observes the
			// committed state and no-ops
			result = "noop"
			return nil
		}

		user, err := u.resolveUser(ctx, tx, pay.CustomerID, env.Payload.Subscription.Entity.CustomerID, sub.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			result = "noop"
			return nil
		}
		if err != nil {
			return err
		}

		if err := u.subs.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusActive, expiresAt, pay.ID); err != nil {
			return err
		}
		return u.users.LinkSubscription(ctx, tx, user.ID, sub.ID)
	})
	if err != nil {
		metrics.IncWebhookEvent(string(model.EventPaymentAuthorized), "error")
		return err
	}
	metrics.IncWebhookEvent(string(model.EventPaymentAuthorized), result)
	logging.With(ctx, u.log).Info().Str("event_id", eventID).Str("subscription_id", subID).Str("result", result).Msg("payment.authorized processed")
	return nil
}

func (u *webhookUC) resolveUser(ctx context.Context, tx repository.Tx, payCustomerID, subCustomerID, ownerID string) (*model.User, error) {
	for _, cid := range []string{payCustomerID, subCustomerID} {
		if cid == "" {
			continue
		}
		user, err := u.users.FindByCustomerID(ctx, tx, cid)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	// fall back to the owner recorded on the subscription itself
	if ownerID != "" {
		return u.users.FindByID(ctx, tx, ownerID)
	}
	return nil, domain.ErrNotFound
}
