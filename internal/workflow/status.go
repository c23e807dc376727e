// Package workflow implements the order verification state machine: statuses,
// actor roles, per-payment-type verification checks and the gating rules that
// decide whether an approve or reject action is currently permitted.
package workflow

import "time"

// Status is the order's position in the approval workflow.
type Status string

const (
	StatusPendingPayment             Status = "PENDING_PAYMENT"
	StatusPendingAdmin               Status = "PENDING_ADMIN_VERIFICATION"
	StatusPendingSuperAdmin          Status = "PENDING_SUPER_ADMIN_VERIFICATION"
	StatusPendingSuperAdminRejection Status = "PENDING_SUPER_ADMIN_REJECTION"
	StatusPaid                       Status = "PAID"
	StatusRejected                   Status = "REJECTED"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusPendingPayment,
	StatusPendingAdmin,
	StatusPendingSuperAdmin,
	StatusPendingSuperAdminRejection,
	StatusPaid,
	StatusRejected,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further approval action exists for the status.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected
}

// Action is an operator decision recorded against an order.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

// Role is a bitflag set of the actor's privileges.
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleSuperAdmin
)

func (r Role) Has(role Role) bool {
	return r&role != 0
}

func (r Role) Strings() []string {
	var out []string
	if r.Has(RoleAdmin) {
		out = append(out, "ADMIN")
	}
	if r.Has(RoleSuperAdmin) {
		out = append(out, "SUPER_ADMIN")
	}
	return out
}

// ParseRoles folds role claim strings into a bitflag set. Unknown names are
// ignored so a token carrying extra roles still authenticates with the ones
// this workflow understands.
func ParseRoles(names []string) Role {
	var roles Role
	for _, name := range names {
		switch name {
		case "ADMIN":
			roles |= RoleAdmin
		case "SUPER_ADMIN", "SUPERADMIN":
			roles |= RoleSuperAdmin
		}
	}
	return roles
}

// Identity is the authenticated actor taking workflow actions.
type Identity struct {
	Mobile string
	Name   string
	Roles  Role
}

// PaymentType is how the investor settled the order.
type PaymentType string

const (
	PaymentBankTransfer PaymentType = "BANK_TRANSFER"
	PaymentCheque       PaymentType = "CHEQUE"
	PaymentOnline       PaymentType = "ONLINE"
	PaymentCashPayment  PaymentType = "CASH_PAYMENT"
	PaymentCash         PaymentType = "CASH"
	PaymentCoinsRedeem  PaymentType = "COINS_REDEEM"
)

// HistoryEntry is one recorded approve/reject action.
type HistoryEntry struct {
	Action      Action
	Role        Role
	ActorName   string
	ActorMobile string
	At          time.Time
	Comments    string
	Checks      CheckSet
}

// NextStatus returns the status an action transitions to. ok is false when
// the current status exposes no such action.
func NextStatus(s Status, a Action) (Status, bool) {
	switch s {
	case StatusPendingAdmin:
		if a == ActionApprove {
			return StatusPendingSuperAdmin, true
		}
		return StatusRejected, true
	case StatusPendingSuperAdmin, StatusPendingSuperAdminRejection:
		if a == ActionApprove {
			return StatusPaid, true
		}
		return StatusRejected, true
	default:
		return s, false
	}
}

// permittedRoles returns which roles may act on an order in the given status.
func permittedRoles(s Status) Role {
	switch s {
	case StatusPendingAdmin:
		return RoleAdmin | RoleSuperAdmin
	case StatusPendingSuperAdmin, StatusPendingSuperAdminRejection:
		return RoleSuperAdmin
	default:
		return 0
	}
}

// Reviewable reports whether any approve/reject action is exposed to the
// given roles for an order in status s.
func Reviewable(s Status, roles Role) bool {
	return permittedRoles(s)&roles != 0
}

// DeriveStatus folds the approval history over an initial status. The current
// status is always a pure function of the latest entry, so a caller holding
// the full history never needs to trust a separately stored status field.
func DeriveStatus(initial Status, history []HistoryEntry) Status {
	status := initial
	for _, entry := range history {
		next, ok := NextStatus(status, entry.Action)
		if !ok {
			break
		}
		status = next
	}
	return status
}
