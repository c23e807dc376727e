package workflow

import (
	"errors"
	"strings"
)

var (
	ErrNotPermitted     = errors.New("action not permitted for role in current status")
	ErrTerminalStatus   = errors.New("order is in a terminal status")
	ErrChecksIncomplete = errors.New("every relevant check must be explicitly true")
	ErrNoFailedCheck    = errors.New("rejection requires at least one relevant check explicitly false")
	ErrRemarksRequired  = errors.New("rejection requires a justification")
)

// EvaluateApprove decides whether the actor may approve the order right now.
// Admins must have every relevant check explicitly true; a SuperAdmin may
// approve a reviewable order on holistic judgement with no checks set.
func EvaluateApprove(status Status, roles Role, pt PaymentType, coinsRedeemed int64, checks CheckSet) error {
	if status.Terminal() {
		return ErrTerminalStatus
	}
	if !Reviewable(status, roles) {
		return ErrNotPermitted
	}
	if roles.Has(RoleSuperAdmin) {
		return nil
	}
	for _, c := range RelevantChecks(pt, coinsRedeemed) {
		if v, ok := checks.Get(c); !ok || !v {
			return ErrChecksIncomplete
		}
	}
	return nil
}

// EvaluateReject decides whether the actor may reject the order right now.
// Both roles follow the same rule: at least one relevant check explicitly
// false, and non-empty remarks documenting the reason.
func EvaluateReject(status Status, roles Role, pt PaymentType, coinsRedeemed int64, checks CheckSet, remarks string) error {
	if status.Terminal() {
		return ErrTerminalStatus
	}
	if !Reviewable(status, roles) {
		return ErrNotPermitted
	}
	if strings.TrimSpace(remarks) == "" {
		return ErrRemarksRequired
	}
	for _, c := range RelevantChecks(pt, coinsRedeemed) {
		if v, ok := checks.Get(c); ok && !v {
			return nil
		}
	}
	return ErrNoFailedCheck
}

// CanApprove is the boolean form of EvaluateApprove, for enabling buttons.
func CanApprove(status Status, roles Role, pt PaymentType, coinsRedeemed int64, checks CheckSet) bool {
	return EvaluateApprove(status, roles, pt, coinsRedeemed, checks) == nil
}

// CanReject is the boolean form of EvaluateReject.
func CanReject(status Status, roles Role, pt PaymentType, coinsRedeemed int64, checks CheckSet, remarks string) bool {
	return EvaluateReject(status, roles, pt, coinsRedeemed, checks, remarks) == nil
}
