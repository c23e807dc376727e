package repository

import (
	"errors"
	"time"

	"github.com/herdvest/backoffice/internal/workflow"
)

var ErrObjectNotFound = errors.New("not found")

type Order struct {
	ID             string    `db:"id"`
	FarmID         string    `db:"farm_id"`
	FarmLocation   string    `db:"farm_location"`
	InvestorMobile string    `db:"investor_mobile"`
	PlacedAt       time.Time `db:"placed_at"`
	Units          int       `db:"units"`
	BuffaloCount   int       `db:"buffalo_count"`
	CalfCount      int       `db:"calf_count"`
	UnitCost       int64     `db:"unit_cost"`
	TotalCost      int64     `db:"total_cost"`
	CoinsRedeemed  int64     `db:"coins_redeemed"`
	PaymentStatus  string    `db:"payment_status"`
	RejectedReason *string   `db:"rejected_reason"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction is the payment record owned by an order. Proof references and
// reference identifiers vary by payment type, hence the nullable columns.
type Transaction struct {
	ID              int64     `db:"id"`
	OrderID         string    `db:"order_id"`
	PaymentType     string    `db:"payment_type"`
	TransferMode    *string   `db:"transfer_mode"`
	Amount          int64     `db:"amount"`
	ProofFront      *string   `db:"proof_front"`
	ProofBack       *string   `db:"proof_back"`
	ProofCheque     *string   `db:"proof_cheque"`
	ProofScreenshot *string   `db:"proof_screenshot"`
	UTR             *string   `db:"utr"`
	ChequeNumber    *string   `db:"cheque_number"`
	CashierName     *string   `db:"cashier_name"`
	TransactedAt    time.Time `db:"transacted_at"`
}

type Investor struct {
	Mobile       string    `db:"mobile"`
	Name         string    `db:"name"`
	KYCStatus    string    `db:"kyc_status"`
	PanDocRef    *string   `db:"pan_doc_ref"`
	AadharDocRef *string   `db:"aadhar_doc_ref"`
	CreatedAt    time.Time `db:"created_at"`
}

// ApprovalHistoryEntry is one approve/reject action taken on an order.
// Rows are append-only; a NULL check column means the operator never set
// that check, which is not the same as false.
type ApprovalHistoryEntry struct {
	ID              int64     `db:"id"`
	OrderID         string    `db:"order_id"`
	Action          string    `db:"action"`
	ActorRole       string    `db:"actor_role"`
	ActorName       string    `db:"actor_name"`
	ActorMobile     string    `db:"actor_mobile"`
	Comments        string    `db:"comments"`
	UnitsChecked    *bool     `db:"units_checked"`
	PaymentProof    *bool     `db:"payment_proof"`
	PaymentReceived *bool     `db:"payment_received"`
	CoinsChecked    *bool     `db:"coins_checked"`
	CreatedAt       time.Time `db:"created_at"`
}

// Workflow converts the row into the rule engine's shape, carrying only the
// checks that were explicitly recorded.
func (e *ApprovalHistoryEntry) Workflow() workflow.HistoryEntry {
	checks := make(workflow.CheckSet)
	if e.UnitsChecked != nil {
		checks[workflow.CheckUnits] = *e.UnitsChecked
	}
	if e.PaymentProof != nil {
		checks[workflow.CheckPaymentProof] = *e.PaymentProof
	}
	if e.PaymentReceived != nil {
		checks[workflow.CheckPaymentReceived] = *e.PaymentReceived
	}
	if e.CoinsChecked != nil {
		checks[workflow.CheckCoins] = *e.CoinsChecked
	}
	return workflow.HistoryEntry{
		Action:      workflow.Action(e.Action),
		Role:        workflow.ParseRoles([]string{e.ActorRole}),
		ActorName:   e.ActorName,
		ActorMobile: e.ActorMobile,
		At:          e.CreatedAt,
		Comments:    e.Comments,
		Checks:      checks,
	}
}

type Farm struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Location string `db:"location"`
	Status   string `db:"status"`
}

type Admin struct {
	Mobile    string    `db:"mobile"`
	Name      string    `db:"name"`
	Password  string    `db:"password"`
	Roles     []string  `db:"roles"`
	CreatedAt time.Time `db:"created_at"`
}

// OrderFilter is the server-side view of the console's query filters.
type OrderFilter struct {
	Search        string
	PaymentStatus string
	PaymentType   string
	TransferMode  string
	FarmID        string
	Page          int
	PageSize      int
}

// StatusCounts are the per-bucket totals computed over the non-status filters
// of a query, so switching the status tab never changes them.
type StatusCounts struct {
	PaymentDue            int64 `db:"payment_due_count"`
	PendingAdmin          int64 `db:"pending_admin_approval_count"`
	PendingSuperAdmin     int64 `db:"pending_super_admin_approval_count"`
	PendingSuperRejection int64 `db:"pending_super_admin_rejection_count"`
	Paid                  int64 `db:"paid_count"`
	Rejected              int64 `db:"rejected_count"`
	TotalAllOrders        int64 `db:"total_all_orders"`
}
