package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/metrics"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/service"
	"github.com/herdvest/backoffice/internal/workflow"
)

type orderDTO struct {
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
	RejectedReason *string   `json:"rejectedReason,omitempty"`
}

func toOrderDTO(o *repository.Order) orderDTO {
	return orderDTO{
		ID:             o.ID,
		FarmID:         o.FarmID,
		FarmLocation:   o.FarmLocation,
		InvestorMobile: o.InvestorMobile,
		PlacedAt:       o.PlacedAt,
		Units:          o.Units,
		BuffaloCount:   o.BuffaloCount,
		CalfCount:      o.CalfCount,
		UnitCost:       o.UnitCost,
		TotalCost:      o.TotalCost,
		CoinsRedeemed:  o.CoinsRedeemed,
		PaymentStatus:  o.PaymentStatus,
		RejectedReason: o.RejectedReason,
	}
}

// orderListResponse is the /pending-units envelope. Count fields are pointers
// so an unknown count is absent from the body instead of serialized as zero.
type orderListResponse struct {
	Orders                          []orderDTO `json:"orders"`
	TotalFiltered                   int64      `json:"total_filtered"`
	TotalAllOrders                  *int64     `json:"total_all_orders,omitempty"`
	PaymentDueCount                 *int64     `json:"payment_due_count,omitempty"`
	PendingAdminApprovalCount       *int64     `json:"pending_admin_approval_count,omitempty"`
	PendingSuperAdminApprovalCount  *int64     `json:"pending_super_admin_approval_count,omitempty"`
	PendingSuperAdminRejectionCount *int64     `json:"pending_super_admin_rejection_count,omitempty"`
	PaidCount                       *int64     `json:"paid_count,omitempty"`
	RejectedCount                   *int64     `json:"rejected_count,omitempty"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.OrderFilter{
		Search:        q.Get("search"),
		PaymentStatus: q.Get("paymentStatus"),
		PaymentType:   q.Get("paymentType"),
		TransferMode:  q.Get("transferMode"),
		FarmID:        q.Get("farmId"),
		Page:          1,
		PageSize:      10,
	}

	if pageStr := q.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid value for 'page' parameter")
			return
		}
		filter.Page = page
	}
	if sizeStr := q.Get("page_size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid value for 'page_size' parameter")
			return
		}
		filter.PageSize = size
	}
	if filter.PaymentStatus != "" && !workflow.Status(filter.PaymentStatus).Valid() {
		respondError(w, http.StatusBadRequest, "Invalid value for 'paymentStatus' parameter")
		return
	}

	orders, total, err := s.orders.List(r.Context(), filter)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list_orders").Inc()
		s.log.Error("order list query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error: failed to load orders")
		return
	}
	metrics.OrderListRequestsTotal.Inc()

	resp := orderListResponse{
		Orders:        make([]orderDTO, 0, len(orders)),
		TotalFiltered: total,
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderDTO(o))
	}

	// Counts are best-effort: a failed bucket query degrades the response
	// to orders-only rather than failing the whole list. Absent count keys
	// tell the client to keep whatever counts it already knows.
	counts, err := s.orders.Counts(r.Context(), filter)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("status_counts").Inc()
		s.log.Warn("status counts query failed", zap.Error(err))
	} else {
		resp.TotalAllOrders = &counts.TotalAllOrders
		resp.PaymentDueCount = &counts.PaymentDue
		resp.PendingAdminApprovalCount = &counts.PendingAdmin
		resp.PendingSuperAdminApprovalCount = &counts.PendingSuperAdmin
		resp.PendingSuperAdminRejectionCount = &counts.PendingSuperRejection
		resp.PaidCount = &counts.Paid
		resp.RejectedCount = &counts.Rejected
	}

	respondJSON(w, http.StatusOK, resp)
}

// decisionRequest mirrors the approve/reject body. Check fields are pointers:
// an absent key means the operator never set that check, which must stay
// distinct from an explicit false.
type decisionRequest struct {
	OrderID         string `json:"orderId"`
	Comments        string `json:"comments"`
	UnitsChecked    *bool  `json:"unitsChecked"`
	PaymentProof    *bool  `json:"paymentProof"`
	PaymentReceived *bool  `json:"paymentReceived"`
	CoinsChecked    *bool  `json:"coinsChecked"`
}

func (req *decisionRequest) command() service.Command {
	checks := make(workflow.CheckSet)
	if req.UnitsChecked != nil {
		checks[workflow.CheckUnits] = *req.UnitsChecked
	}
	if req.PaymentProof != nil {
		checks[workflow.CheckPaymentProof] = *req.PaymentProof
	}
	if req.PaymentReceived != nil {
		checks[workflow.CheckPaymentReceived] = *req.PaymentReceived
	}
	if req.CoinsChecked != nil {
		checks[workflow.CheckCoins] = *req.CoinsChecked
	}
	return service.Command{
		OrderID:  req.OrderID,
		Comments: req.Comments,
		Checks:   checks,
	}
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, workflow.ActionApprove)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, workflow.ActionReject)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, action workflow.Action) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "Missing orderId")
		return
	}

	var order *repository.Order
	var err error
	if action == workflow.ActionApprove {
		order, err = s.approvals.Approve(r.Context(), identity, req.command())
	} else {
		order, err = s.approvals.Reject(r.Context(), identity, req.command())
	}
	if err != nil {
		respondDecisionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Decision recorded",
		"order":   toOrderDTO(order),
	})
}

func (s *Server) handleListFarms(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "ACTIVE"
	}

	farms, err := s.farms.GetByStatus(r.Context(), status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error: failed to load farms")
		return
	}

	type farmDTO struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location string `json:"location"`
		Status   string `json:"status"`
	}
	out := make([]farmDTO, 0, len(farms))
	for _, f := range farms {
		out = append(out, farmDTO{ID: f.ID, Name: f.Name, Location: f.Location, Status: f.Status})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInvestor(w http.ResponseWriter, r *http.Request) {
	mobile := mux.Vars(r)["mobile"]
	if mobile == "" {
		respondError(w, http.StatusBadRequest, "Missing mobile")
		return
	}

	investor, err := s.investors.GetByMobile(r.Context(), mobile)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Error: investor not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Error: failed to load investor")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"mobile":       investor.Mobile,
		"name":         investor.Name,
		"kycStatus":    investor.KYCStatus,
		"panDocRef":    investor.PanDocRef,
		"aadharDocRef": investor.AadharDocRef,
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "Missing order ID")
		return
	}

	order, err := s.orders.GetByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Error: order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Error: failed to load order")
		return
	}

	resp := map[string]interface{}{"order": toOrderDTO(order)}

	// Transaction record is optional; a missing row never fails the detail.
	if txn, err := s.transactions.GetByOrderID(r.Context(), orderID); err == nil {
		resp["transaction"] = map[string]interface{}{
			"paymentType":     txn.PaymentType,
			"transferMode":    txn.TransferMode,
			"amount":          txn.Amount,
			"proofFront":      txn.ProofFront,
			"proofBack":       txn.ProofBack,
			"proofCheque":     txn.ProofCheque,
			"proofScreenshot": txn.ProofScreenshot,
			"utr":             txn.UTR,
			"chequeNumber":    txn.ChequeNumber,
			"cashierName":     txn.CashierName,
			"transactedAt":    txn.TransactedAt,
		}
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		s.log.Warn("transaction lookup failed", zap.String("order_id", orderID), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, resp)
}

type historyEntryDTO struct {
	Action          string          `json:"action"`
	ActorRole       string          `json:"actorRole"`
	ActorName       string          `json:"actorName"`
	ActorMobile     string          `json:"actorMobile"`
	Comments        string          `json:"comments"`
	Checks          map[string]bool `json:"checks,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "Missing order ID")
		return
	}

	entries, err := s.history.GetByOrderID(r.Context(), orderID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error: failed to load history")
		return
	}

	out := make([]historyEntryDTO, 0, len(entries))
	for _, e := range entries {
		wf := e.Workflow()
		out = append(out, historyEntryDTO{
			Action:      e.Action,
			ActorRole:   e.ActorRole,
			ActorName:   e.ActorName,
			ActorMobile: e.ActorMobile,
			Comments:    e.Comments,
			Checks:      wf.Checks.Payload(),
			CreatedAt:   e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
