package checkout

// State is the position of a cart's checkout in the payment flow
type State string

const (
	StateIdle                 State = "IDLE"
	StateAwaitingPayment      State = "AWAITING_PAYMENT"
	StatePaymentConfirmed     State = "PAYMENT_CONFIRMED"
	StateOrderRecorded        State = "ORDER_RECORDED"
	StateFailed               State = "FAILED"
	StateReconciliationNeeded State = "RECONCILIATION_NEEDED"
)

var transitions = map[State][]State{
	StateIdle:                 {StateAwaitingPayment},
	StateAwaitingPayment:      {StatePaymentConfirmed, StateFailed, StateIdle},
	StatePaymentConfirmed:     {StateOrderRecorded, StateReconciliationNeeded},
	StateReconciliationNeeded: {StatePaymentConfirmed},
	StateOrderRecorded:        {StateIdle},
	StateFailed:               {StateIdle},
}

// CanTransitionTo reports whether from -> to is a legal move
func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive reports whether a checkout holds the cart in this state
func (s State) IsActive() bool {
	return s == StateAwaitingPayment || s == StatePaymentConfirmed || s == StateReconciliationNeeded
}

func (s State) String() string {
	return string(s)
}
