package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/herdvest/backoffice/internal/console/querystore"
	"github.com/herdvest/backoffice/internal/workflow"
)

// Client talks to the back-office order API on behalf of one operator.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type orderWire struct {
	ID             string    `json:"id"`
	FarmID         string    `json:"farmId"`
	FarmLocation   string    `json:"farmLocation"`
	InvestorMobile string    `json:"investorMobile"`
	PlacedAt       time.Time `json:"placedAt"`
	Units          int       `json:"units"`
	BuffaloCount   int       `json:"buffaloCount"`
	CalfCount      int       `json:"calfCount"`
	UnitCost       int64     `json:"unitCost"`
	TotalCost      int64     `json:"totalCost"`
	CoinsRedeemed  int64     `json:"coinsRedeemed"`
	PaymentStatus  string    `json:"paymentStatus"`
	RejectedReason *string   `json:"rejectedReason"`
}

func (w orderWire) toOrder() querystore.Order {
	o := querystore.Order{
		ID:             w.ID,
		FarmID:         w.FarmID,
		FarmLocation:   w.FarmLocation,
		InvestorMobile: w.InvestorMobile,
		PlacedAt:       w.PlacedAt,
		Units:          w.Units,
		BuffaloCount:   w.BuffaloCount,
		CalfCount:      w.CalfCount,
		UnitCost:       w.UnitCost,
		TotalCost:      w.TotalCost,
		CoinsRedeemed:  w.CoinsRedeemed,
		PaymentStatus:  workflow.Status(w.PaymentStatus),
	}
	if w.RejectedReason != nil {
		o.RejectedReason = *w.RejectedReason
	}
	return o
}

type listEnvelope struct {
	Orders                          []orderWire `json:"orders"`
	TotalFiltered                   int64       `json:"total_filtered"`
	TotalAllOrders                  *int64      `json:"total_all_orders"`
	PaymentDueCount                 *int64      `json:"payment_due_count"`
	PendingAdminApprovalCount       *int64      `json:"pending_admin_approval_count"`
	PendingSuperAdminApprovalCount  *int64      `json:"pending_super_admin_approval_count"`
	PendingSuperAdminRejectionCount *int64      `json:"pending_super_admin_rejection_count"`
	PaidCount                       *int64      `json:"paid_count"`
	RejectedCount                   *int64      `json:"rejected_count"`
	Error                           string      `json:"error"`
}

// FetchOrders issues the filtered, paginated list query and normalizes the
// two response shapes the backend has historically produced (a bare order
// array, or an envelope with counts) into one typed result. The shape is
// resolved once here; nothing downstream re-detects it.
func (c *Client) FetchOrders(ctx context.Context, filters querystore.Filters) (*querystore.Result, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(filters.Page))
	params.Set("page_size", strconv.Itoa(filters.PageSize))
	if filters.Status != "" {
		params.Set("paymentStatus", filters.Status)
	}
	if filters.PaymentType != "" {
		params.Set("paymentType", filters.PaymentType)
	}
	if filters.TransferMode != "" {
		params.Set("transferMode", filters.TransferMode)
	}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}
	if filters.FarmID != "" {
		params.Set("farmId", filters.FarmID)
	}

	body, err := c.get(ctx, "/pending-units?"+params.Encode())
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var orders []orderWire
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, fmt.Errorf("failed to decode order array: %w", err)
		}
		result := &querystore.Result{TotalFiltered: int64(len(orders))}
		for _, o := range orders {
			result.Orders = append(result.Orders, o.toOrder())
		}
		return result, nil
	}

	var envelope listEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}
	// A 200 with an error field is still a failure for the caller.
	if envelope.Error != "" {
		return nil, fmt.Errorf("server error: %s", envelope.Error)
	}

	result := &querystore.Result{
		TotalFiltered: envelope.TotalFiltered,
		Counts: querystore.Counts{
			TotalAllOrders:        envelope.TotalAllOrders,
			PaymentDue:            envelope.PaymentDueCount,
			PendingAdmin:          envelope.PendingAdminApprovalCount,
			PendingSuperAdmin:     envelope.PendingSuperAdminApprovalCount,
			PendingSuperRejection: envelope.PendingSuperAdminRejectionCount,
			Paid:                  envelope.PaidCount,
			Rejected:              envelope.RejectedCount,
		},
	}
	for _, o := range envelope.Orders {
		result.Orders = append(result.Orders, o.toOrder())
	}
	return result, nil
}

// Transaction is the payment record as rendered in the detail view.
type Transaction struct {
	PaymentType     workflow.PaymentType `json:"paymentType"`
	TransferMode    *string              `json:"transferMode"`
	Amount          int64                `json:"amount"`
	ProofFront      *string              `json:"proofFront"`
	ProofBack       *string              `json:"proofBack"`
	ProofCheque     *string              `json:"proofCheque"`
	ProofScreenshot *string              `json:"proofScreenshot"`
	UTR             *string              `json:"utr"`
	ChequeNumber    *string              `json:"chequeNumber"`
	CashierName     *string              `json:"cashierName"`
	TransactedAt    time.Time            `json:"transactedAt"`
}

type Investor struct {
	Mobile    string `json:"mobile"`
	Name      string `json:"name"`
	KYCStatus string `json:"kycStatus"`
}

// GetOrder fetches a single order with its transaction record, for the
// deep-link case where the order is not in the already-fetched list.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*querystore.Order, *Transaction, error) {
	body, err := c.get(ctx, "/orders/"+url.PathEscape(orderID))
	if err != nil {
		return nil, nil, err
	}

	var detail struct {
		Order       *orderWire   `json:"order"`
		Transaction *Transaction `json:"transaction"`
		Error       string       `json:"error"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, nil, fmt.Errorf("failed to decode order detail: %w", err)
	}
	if detail.Error != "" {
		return nil, nil, fmt.Errorf("server error: %s", detail.Error)
	}
	if detail.Order == nil {
		return nil, nil, fmt.Errorf("order %s missing from response", orderID)
	}
	order := detail.Order.toOrder()
	return &order, detail.Transaction, nil
}

// ResolvePaymentType returns the recorded payment type for an order. The
// list row does not carry it, so the transaction is fetched; only when that
// fails are the totals consulted, which can distinguish no more than a
// coins-only redemption.
func (c *Client) ResolvePaymentType(ctx context.Context, order querystore.Order) workflow.PaymentType {
	if _, txn, err := c.GetOrder(ctx, order.ID); err == nil && txn != nil {
		return txn.PaymentType
	}
	if order.CoinsRedeemed > 0 && order.TotalCost == 0 {
		return workflow.PaymentCoinsRedeem
	}
	return workflow.PaymentBankTransfer
}

type historyWire struct {
	Action      string          `json:"action"`
	ActorRole   string          `json:"actorRole"`
	ActorName   string          `json:"actorName"`
	ActorMobile string          `json:"actorMobile"`
	Comments    string          `json:"comments"`
	Checks      map[string]bool `json:"checks"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (c *Client) GetHistory(ctx context.Context, orderID string) ([]workflow.HistoryEntry, error) {
	body, err := c.get(ctx, "/orders/"+url.PathEscape(orderID)+"/history")
	if err != nil {
		return nil, err
	}

	var wire []historyWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	entries := make([]workflow.HistoryEntry, 0, len(wire))
	for _, h := range wire {
		checks := make(workflow.CheckSet, len(h.Checks))
		for k, v := range h.Checks {
			checks[workflow.Check(k)] = v
		}
		entries = append(entries, workflow.HistoryEntry{
			Action:      workflow.Action(h.Action),
			Role:        workflow.ParseRoles([]string{h.ActorRole}),
			ActorName:   h.ActorName,
			ActorMobile: h.ActorMobile,
			At:          h.CreatedAt,
			Comments:    h.Comments,
			Checks:      checks,
		})
	}
	return entries, nil
}

func (c *Client) GetInvestor(ctx context.Context, mobile string) (*Investor, error) {
	body, err := c.get(ctx, "/user/"+url.PathEscape(mobile))
	if err != nil {
		return nil, err
	}

	var investor Investor
	if err := json.Unmarshal(body, &investor); err != nil {
		return nil, fmt.Errorf("failed to decode investor: %w", err)
	}
	return &investor, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var soft struct {
		Error string `json:"error"`
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if json.Unmarshal(body, &soft) == nil && soft.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, soft.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	// A 2xx carrying an error envelope is still a failure for the caller.
	if json.Unmarshal(body, &soft) == nil && soft.Error != "" {
		return nil, fmt.Errorf("server error: %s", soft.Error)
	}
	return body, nil
}
