package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdvest/backoffice/internal/workflow"
)

func TestRelevantChecks(t *testing.T) {
	tests := []struct {
		name          string
		paymentType   workflow.PaymentType
		coinsRedeemed int64
		expected      []workflow.Check
	}{
		{
			name:          "coins redemption needs only coinsChecked",
			paymentType:   workflow.PaymentCoinsRedeem,
			coinsRedeemed: 500,
			expected:      []workflow.Check{workflow.CheckCoins},
		},
		{
			name:          "bank transfer without coins",
			paymentType:   workflow.PaymentBankTransfer,
			coinsRedeemed: 0,
			expected:      []workflow.Check{workflow.CheckUnits, workflow.CheckPaymentProof, workflow.CheckPaymentReceived},
		},
		{
			name:          "cheque with partial coin redemption adds coinsChecked",
			paymentType:   workflow.PaymentCheque,
			coinsRedeemed: 200,
			expected:      []workflow.Check{workflow.CheckUnits, workflow.CheckPaymentProof, workflow.CheckPaymentReceived, workflow.CheckCoins},
		},
		{
			name:          "cash without coins",
			paymentType:   workflow.PaymentCash,
			coinsRedeemed: 0,
			expected:      []workflow.Check{workflow.CheckUnits, workflow.CheckPaymentProof, workflow.CheckPaymentReceived},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, workflow.RelevantChecks(tt.paymentType, tt.coinsRedeemed))
		})
	}
}

func TestEvaluateApprove(t *testing.T) {
	allTrue := workflow.CheckSet{
		workflow.CheckUnits:           true,
		workflow.CheckPaymentProof:    true,
		workflow.CheckPaymentReceived: true,
	}

	tests := []struct {
		name          string
		status        workflow.Status
		roles         workflow.Role
		paymentType   workflow.PaymentType
		coinsRedeemed int64
		checks        workflow.CheckSet
		expectedErr   error
	}{
		{
			name:        "admin with all relevant checks true",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      allTrue,
			expectedErr: nil,
		},
		{
			name:        "admin with zero checks set",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			expectedErr: workflow.ErrChecksIncomplete,
		},
		{
			name:        "admin with one check unset",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks: workflow.CheckSet{
				workflow.CheckUnits:        true,
				workflow.CheckPaymentProof: true,
			},
			expectedErr: workflow.ErrChecksIncomplete,
		},
		{
			name:        "admin with one check explicitly false",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks: workflow.CheckSet{
				workflow.CheckUnits:           true,
				workflow.CheckPaymentProof:    true,
				workflow.CheckPaymentReceived: false,
			},
			expectedErr: workflow.ErrChecksIncomplete,
		},
		{
			name:          "admin on mixed payment misses coinsChecked",
			status:        workflow.StatusPendingAdmin,
			roles:         workflow.RoleAdmin,
			paymentType:   workflow.PaymentOnline,
			coinsRedeemed: 100,
			checks:        allTrue,
			expectedErr:   workflow.ErrChecksIncomplete,
		},
		{
			name:          "coins redemption ignores units, proof and receipt",
			status:        workflow.StatusPendingAdmin,
			roles:         workflow.RoleAdmin,
			paymentType:   workflow.PaymentCoinsRedeem,
			coinsRedeemed: 500,
			checks:        workflow.CheckSet{workflow.CheckCoins: true},
			expectedErr:   nil,
		},
		{
			name:          "coins redemption blocked only by coinsChecked",
			status:        workflow.StatusPendingAdmin,
			roles:         workflow.RoleAdmin,
			paymentType:   workflow.PaymentCoinsRedeem,
			coinsRedeemed: 500,
			checks:        allTrue,
			expectedErr:   workflow.ErrChecksIncomplete,
		},
		{
			name:        "super admin approves with zero checks",
			status:      workflow.StatusPendingSuperAdmin,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			expectedErr: nil,
		},
		{
			name:        "super admin approves flagged rejection",
			status:      workflow.StatusPendingSuperAdminRejection,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			expectedErr: nil,
		},
		{
			name:        "admin cannot act on super admin stage",
			status:      workflow.StatusPendingSuperAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      allTrue,
			expectedErr: workflow.ErrNotPermitted,
		},
		{
			name:        "no action before payment",
			status:      workflow.StatusPendingPayment,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			expectedErr: workflow.ErrNotPermitted,
		},
		{
			name:        "paid is terminal",
			status:      workflow.StatusPaid,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			expectedErr: workflow.ErrTerminalStatus,
		},
		{
			name:        "rejected is terminal",
			status:      workflow.StatusRejected,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      allTrue,
			expectedErr: workflow.ErrTerminalStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workflow.EvaluateApprove(tt.status, tt.roles, tt.paymentType, tt.coinsRedeemed, tt.checks)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			assert.Equal(t, tt.expectedErr == nil,
				workflow.CanApprove(tt.status, tt.roles, tt.paymentType, tt.coinsRedeemed, tt.checks))
		})
	}
}

func TestEvaluateReject(t *testing.T) {
	oneFalse := workflow.CheckSet{
		workflow.CheckUnits:           true,
		workflow.CheckPaymentProof:    true,
		workflow.CheckPaymentReceived: false,
	}

	tests := []struct {
		name          string
		status        workflow.Status
		roles         workflow.Role
		paymentType   workflow.PaymentType
		coinsRedeemed int64
		checks        workflow.CheckSet
		remarks       string
		expectedErr   error
	}{
		{
			name:        "admin with failed check and remarks",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      oneFalse,
			remarks:     "amount mismatch",
			expectedErr: nil,
		},
		{
			name:        "remarks missing",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      oneFalse,
			remarks:     "",
			expectedErr: workflow.ErrRemarksRequired,
		},
		{
			name:        "whitespace remarks do not count",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      oneFalse,
			remarks:     "   ",
			expectedErr: workflow.ErrRemarksRequired,
		},
		{
			name:        "no failed check",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks: workflow.CheckSet{
				workflow.CheckUnits: true,
			},
			remarks:     "looks wrong",
			expectedErr: workflow.ErrNoFailedCheck,
		},
		{
			name:        "unset checks do not enable rejection",
			status:      workflow.StatusPendingAdmin,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			remarks:     "suspicious",
			expectedErr: workflow.ErrNoFailedCheck,
		},
		{
			name:        "super admin follows same rejection rule",
			status:      workflow.StatusPendingSuperAdmin,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{},
			remarks:     "override",
			expectedErr: workflow.ErrNoFailedCheck,
		},
		{
			name:        "super admin rejects with documented reason",
			status:      workflow.StatusPendingSuperAdmin,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      workflow.CheckSet{workflow.CheckPaymentProof: false},
			remarks:     "proof illegible",
			expectedErr: nil,
		},
		{
			name:          "failed irrelevant check does not enable rejection on coins order",
			status:        workflow.StatusPendingAdmin,
			roles:         workflow.RoleAdmin,
			paymentType:   workflow.PaymentCoinsRedeem,
			coinsRedeemed: 500,
			checks:        workflow.CheckSet{workflow.CheckUnits: false},
			remarks:       "wrong unit count",
			expectedErr:   workflow.ErrNoFailedCheck,
		},
		{
			name:        "admin cannot reject at super admin stage",
			status:      workflow.StatusPendingSuperAdminRejection,
			roles:       workflow.RoleAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      oneFalse,
			remarks:     "mismatch",
			expectedErr: workflow.ErrNotPermitted,
		},
		{
			name:        "terminal order cannot be rejected again",
			status:      workflow.StatusRejected,
			roles:       workflow.RoleSuperAdmin,
			paymentType: workflow.PaymentBankTransfer,
			checks:      oneFalse,
			remarks:     "again",
			expectedErr: workflow.ErrTerminalStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workflow.EvaluateReject(tt.status, tt.roles, tt.paymentType, tt.coinsRedeemed, tt.checks, tt.remarks)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
			assert.Equal(t, tt.expectedErr == nil,
				workflow.CanReject(tt.status, tt.roles, tt.paymentType, tt.coinsRedeemed, tt.checks, tt.remarks))
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   workflow.Status
		action   workflow.Action
		expected workflow.Status
		ok       bool
	}{
		{"admin approve advances to super admin", workflow.StatusPendingAdmin, workflow.ActionApprove, workflow.StatusPendingSuperAdmin, true},
		{"admin reject terminates", workflow.StatusPendingAdmin, workflow.ActionReject, workflow.StatusRejected, true},
		{"super admin approve pays out", workflow.StatusPendingSuperAdmin, workflow.ActionApprove, workflow.StatusPaid, true},
		{"super admin reject terminates", workflow.StatusPendingSuperAdmin, workflow.ActionReject, workflow.StatusRejected, true},
		{"flagged order can still be paid", workflow.StatusPendingSuperAdminRejection, workflow.ActionApprove, workflow.StatusPaid, true},
		{"flagged order can be rejected", workflow.StatusPendingSuperAdminRejection, workflow.ActionReject, workflow.StatusRejected, true},
		{"no action before payment", workflow.StatusPendingPayment, workflow.ActionApprove, workflow.StatusPendingPayment, false},
		{"paid has no actions", workflow.StatusPaid, workflow.ActionReject, workflow.StatusPaid, false},
		{"rejected has no actions", workflow.StatusRejected, workflow.ActionApprove, workflow.StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := workflow.NextStatus(tt.status, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no history keeps initial status", func(t *testing.T) {
		assert.Equal(t, workflow.StatusPendingAdmin,
			workflow.DeriveStatus(workflow.StatusPendingAdmin, nil))
	})

	t.Run("approve then approve reaches paid", func(t *testing.T) {
		history := []workflow.HistoryEntry{
			{Action: workflow.ActionApprove, Role: workflow.RoleAdmin, At: at},
			{Action: workflow.ActionApprove, Role: workflow.RoleSuperAdmin, At: at.Add(time.Hour)},
		}
		assert.Equal(t, workflow.StatusPaid,
			workflow.DeriveStatus(workflow.StatusPendingAdmin, history))
	})

	t.Run("approve then reject terminates", func(t *testing.T) {
		history := []workflow.HistoryEntry{
			{Action: workflow.ActionApprove, Role: workflow.RoleAdmin, At: at},
			{Action: workflow.ActionReject, Role: workflow.RoleSuperAdmin, At: at.Add(time.Hour)},
		}
		assert.Equal(t, workflow.StatusRejected,
			workflow.DeriveStatus(workflow.StatusPendingAdmin, history))
	})

	t.Run("entries past a terminal status are ignored", func(t *testing.T) {
		history := []workflow.HistoryEntry{
			{Action: workflow.ActionReject, Role: workflow.RoleAdmin, At: at},
			{Action: workflow.ActionApprove, Role: workflow.RoleSuperAdmin, At: at.Add(time.Hour)},
		}
		assert.Equal(t, workflow.StatusRejected,
			workflow.DeriveStatus(workflow.StatusPendingAdmin, history))
	})
}

func TestParseRoles(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		expected workflow.Role
	}{
		{"admin only", []string{"ADMIN"}, workflow.RoleAdmin},
		{"super admin variants", []string{"SUPER_ADMIN"}, workflow.RoleSuperAdmin},
		{"legacy spelling", []string{"SUPERADMIN"}, workflow.RoleSuperAdmin},
		{"both roles", []string{"ADMIN", "SUPER_ADMIN"}, workflow.RoleAdmin | workflow.RoleSuperAdmin},
		{"unknown names ignored", []string{"ACCOUNTANT", "ADMIN"}, workflow.RoleAdmin},
		{"empty", nil, workflow.Role(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, workflow.ParseRoles(tt.names))
		})
	}
}

func TestCheckSetPayload(t *testing.T) {
	t.Run("empty set renders nil", func(t *testing.T) {
		assert.Nil(t, workflow.CheckSet{}.Payload())
	})

	t.Run("unset checks are absent, not false", func(t *testing.T) {
		checks := workflow.CheckSet{
			workflow.CheckUnits:           true,
			workflow.CheckPaymentProof:    true,
			workflow.CheckPaymentReceived: false,
		}
		payload := checks.Payload()
		require.Len(t, payload, 3)
		assert.Equal(t, true, payload["unitsChecked"])
		assert.Equal(t, true, payload["paymentProof"])
		assert.Equal(t, false, payload["paymentReceived"])
		_, present := payload["coinsChecked"]
		assert.False(t, present)
	})
}

// TestBankTransferRejectionScenario walks the documented end-to-end case: a
// bank-transfer order with no coins, proof verified but payment not received.
func TestBankTransferRejectionScenario(t *testing.T) {
	status := workflow.StatusPendingAdmin
	checks := workflow.CheckSet{
		workflow.CheckUnits:           true,
		workflow.CheckPaymentProof:    true,
		workflow.CheckPaymentReceived: false,
	}

	assert.False(t, workflow.CanApprove(status, workflow.RoleAdmin, workflow.PaymentBankTransfer, 0, checks))
	assert.True(t, workflow.CanReject(status, workflow.RoleAdmin, workflow.PaymentBankTransfer, 0, checks, "amount mismatch"))

	next, ok := workflow.NextStatus(status, workflow.ActionReject)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusRejected, next)

	// Flipping the failed check enables approve and disables reject.
	checks[workflow.CheckPaymentReceived] = true
	assert.True(t, workflow.CanApprove(status, workflow.RoleAdmin, workflow.PaymentBankTransfer, 0, checks))
	assert.False(t, workflow.CanReject(status, workflow.RoleAdmin, workflow.PaymentBankTransfer, 0, checks, ""))

	next, ok = workflow.NextStatus(status, workflow.ActionApprove)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusPendingSuperAdmin, next)
}
