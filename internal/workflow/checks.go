package workflow

// Check is one verification dimension an operator can mark on an order. The
// values double as the wire keys of the approve/reject payload.
type Check string

const (
	CheckUnits           Check = "unitsChecked"
	CheckPaymentProof    Check = "paymentProof"
	CheckPaymentReceived Check = "paymentReceived"
	CheckCoins           Check = "coinsChecked"
)

// CheckSet holds only explicitly-set checks. Absence of a key means the
// operator never looked at that dimension, which is different from false.
type CheckSet map[Check]bool

func (cs CheckSet) Set(c Check, v bool) {
	cs[c] = v
}

// Get returns the recorded value and whether the check was set at all.
func (cs CheckSet) Get(c Check) (bool, bool) {
	v, ok := cs[c]
	return v, ok
}

// Payload renders the set for serialization. Unset checks do not appear; an
// empty set renders as nil so encoders omit the field entirely.
func (cs CheckSet) Payload() map[string]bool {
	if len(cs) == 0 {
		return nil
	}
	out := make(map[string]bool, len(cs))
	for c, v := range cs {
		out[string(c)] = v
	}
	return out
}

// RelevantChecks returns the checks that gate an order's transitions. A
// coins-redemption order is verified on coinsChecked alone; every other order
// needs units, proof and receipt, plus coinsChecked when it also redeemed
// coins.
func RelevantChecks(pt PaymentType, coinsRedeemed int64) []Check {
	if pt == PaymentCoinsRedeem {
		return []Check{CheckCoins}
	}
	checks := []Check{CheckUnits, CheckPaymentProof, CheckPaymentReceived}
	if coinsRedeemed > 0 {
		checks = append(checks, CheckCoins)
	}
	return checks
}
