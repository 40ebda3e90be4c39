package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "created" // order created on provider side, awaiting confirmation
	PaymentStatusPaid    PaymentStatus = "paid"    // client-side confirmation verified
	PaymentStatusFailed  PaymentStatus = "failed"  // gateway reported failure before payment completed
)

// paymentRank orders payment statuses so transitions can be checked for
// monotonicity. Both paid and failed are terminal.
var paymentRank = map[PaymentStatus]int{
	PaymentStatusCreated: 0,
	PaymentStatusPaid:    1,
	PaymentStatusFailed:  1,
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Terminal states accept no further moves.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	cur, ok := paymentRank[s]
	if !ok {
		return false
	}
	nxt, ok := paymentRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// Payment records a gateway order and its local settlement state. The ID is
// the gateway-issued order id and is the sole join key between local state
// and gateway events. Rows are never deleted; they are the audit trail.
type Payment struct {
	ID        string        // gateway order id (order_xxx)
	PaymentID string        // gateway payment id (pay_xxx), set at confirmation
	UserID    string        // local owner
	Amount    int64         // minor currency units, to avoid float errors
	Currency  string        // e.g. "INR"
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }
