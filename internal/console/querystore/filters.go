package querystore

import (
	"time"

	"github.com/herdvest/backoffice/internal/workflow"
)

// Field names a single filter dimension for SetFilter.
type Field string

const (
	FieldSearch       Field = "search"
	FieldStatus       Field = "status"
	FieldPaymentType  Field = "paymentType"
	FieldTransferMode Field = "transferMode"
	FieldFarm         Field = "farmId"
	FieldPageSize     Field = "pageSize"
)

// Filters is the complete query criteria for the order list. It is a plain
// value object; the JSON tags exist for the persistence port.
type Filters struct {
	Search       string `json:"search"`
	Status       string `json:"status"`
	PaymentType  string `json:"paymentType"`
	TransferMode string `json:"transferMode"`
	FarmID       string `json:"farmId"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

func DefaultFilters() Filters {
	return Filters{Page: 1, PageSize: 10}
}

// Order is the client-side view of one order row.
type Order struct {
	ID             string
	FarmID         string
	FarmLocation   string
	InvestorMobile string
	PlacedAt       time.Time
	Units          int
	BuffaloCount   int
	CalfCount      int
	UnitCost       int64
	TotalCost      int64
	CoinsRedeemed  int64
	PaymentStatus  workflow.Status
	RejectedReason string
}

// Counts carries the per-bucket totals from a list response. A nil field
// means the server omitted that count and the previously known value must be
// kept.
type Counts struct {
	TotalAllOrders        *int64
	PaymentDue            *int64
	PendingAdmin          *int64
	PendingSuperAdmin     *int64
	PendingSuperRejection *int64
	Paid                  *int64
	Rejected              *int64
}

// Result is one normalized page of orders as produced by the fetch gateway.
type Result struct {
	Orders        []Order
	TotalFiltered int64
	Counts        Counts
}
