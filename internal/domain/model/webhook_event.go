package model

import "time"

// EventKind is the closed set of gateway lifecycle notifications we dispatch
// on. Anything else folds into EventOther and is logged and discarded.
type EventKind string

const (
	EventSubscriptionActivated     EventKind = "subscription.activated"
	EventSubscriptionCharged       EventKind = "subscription.charged"
	EventSubscriptionHalted        EventKind = "subscription.halted"
	EventSubscriptionExpired       EventKind = "subscription.expired"
	EventSubscriptionCreated       EventKind = "subscription.created"
	EventSubscriptionAuthenticated EventKind = "subscription.authenticated"
	EventPaymentAuthorized         EventKind = "payment.authorized"
	EventOther                     EventKind = "other"
)

var knownEvents = map[EventKind]struct{}{
	EventSubscriptionActivated:     {},
	EventSubscriptionCharged:       {},
	EventSubscriptionHalted:        {},
	EventSubscriptionExpired:       {},
	EventSubscriptionCreated:       {},
	EventSubscriptionAuthenticated: {},
	EventPaymentAuthorized:         {},
}

// ParseEventKind maps a raw gateway event string onto the closed set,
// returning EventOther plus the raw string for anything unrecognized.
func ParseEventKind(raw string) (EventKind, string) {
	k := EventKind(raw)
	if _, ok := knownEvents[k]; ok {
		return k, raw
	}
	return EventOther, raw
}

// WebhookEvent is the dedup record for a delivered notification. EventID is
// the provider's event id when present, otherwise a locally minted ULID;
// a unique constraint on it makes redelivery a no-op.
type WebhookEvent struct {
	EventID    string
	Kind       EventKind
	RawKind    string
	ReceivedAt time.Time
}
