//go:generate mockgen -source ./approval.go -destination=./mocks/approval.go -package=mock_service
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/metrics"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
	"github.com/herdvest/backoffice/internal/workflow"
)

const defaultApprovalTopic = "order-approvals"

// Command is one operator decision on a single order. Checks carries only the
// flags the operator explicitly set.
type Command struct {
	OrderID  string
	Comments string
	Checks   workflow.CheckSet
}

type ApprovalService struct {
	db          db.DB
	orderRepo   storage.OrderRepository
	historyRepo storage.HistoryRepository
	txnRepo     storage.TransactionRepository
	outboxRepo  storage.OutboxTaskRepository
	topic       string
	log         *zap.Logger
}

func NewApprovalService(
	database db.DB,
	orderRepo storage.OrderRepository,
	historyRepo storage.HistoryRepository,
	txnRepo storage.TransactionRepository,
	outboxRepo storage.OutboxTaskRepository,
	topic string,
	log *zap.Logger,
) *ApprovalService {
	if topic == "" {
		topic = defaultApprovalTopic
	}
	return &ApprovalService{
		db:          database,
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		txnRepo:     txnRepo,
		outboxRepo:  outboxRepo,
		topic:       topic,
		log:         log.Named("approval"),
	}
}

func (s *ApprovalService) Approve(ctx context.Context, identity workflow.Identity, cmd Command) (*repository.Order, error) {
	return s.execute(ctx, identity, cmd, workflow.ActionApprove)
}

func (s *ApprovalService) Reject(ctx context.Context, identity workflow.Identity, cmd Command) (*repository.Order, error) {
	return s.execute(ctx, identity, cmd, workflow.ActionReject)
}

func (s *ApprovalService) execute(ctx context.Context, identity workflow.Identity, cmd Command, action workflow.Action) (*repository.Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return nil, repository.ErrObjectNotFound
	}

	paymentType, err := s.paymentType(ctx, cmd.OrderID)
	if err != nil && !errors.Is(err, repository.ErrObjectNotFound) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	order, err := s.orderRepo.GetByIDTx(ctx, tx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	coins := order.CoinsRedeemed

	rows, err := s.historyRepo.GetByOrderIDTx(ctx, tx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	status := currentStatus(order, rows)

	if action == workflow.ActionApprove {
		err = workflow.EvaluateApprove(status, identity.Roles, paymentType, coins, cmd.Checks)
	} else {
		err = workflow.EvaluateReject(status, identity.Roles, paymentType, coins, cmd.Checks, cmd.Comments)
	}
	if err != nil {
		metrics.GateViolationsTotal.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	next, ok := workflow.NextStatus(status, action)
	if !ok {
		return nil, workflow.ErrTerminalStatus
	}

	var rejectedReason *string
	if next == workflow.StatusRejected {
		reason := cmd.Comments
		rejectedReason = &reason
	}
	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, string(next), rejectedReason); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	// Record only the checks that apply to this order's payment type; a
	// coins-redeem order must never carry units/proof/received flags in
	// its history.
	recorded := relevantOnly(cmd.Checks, paymentType, coins)
	entry := &repository.ApprovalHistoryEntry{
		OrderID:         order.ID,
		Action:          string(action),
		ActorRole:       actingRole(identity.Roles),
		ActorName:       identity.Name,
		ActorMobile:     identity.Mobile,
		Comments:        cmd.Comments,
		UnitsChecked:    checkPtr(recorded, workflow.CheckUnits),
		PaymentProof:    checkPtr(recorded, workflow.CheckPaymentProof),
		PaymentReceived: checkPtr(recorded, workflow.CheckPaymentReceived),
		CoinsChecked:    checkPtr(recorded, workflow.CheckCoins),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.historyRepo.CreateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to append history entry: %w", err)
	}

	if err := s.enqueueEvent(ctx, tx, identity, entry, status, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit decision: %w", err)
	}

	if action == workflow.ActionApprove {
		metrics.OrdersApprovedTotal.Inc()
	} else {
		metrics.OrdersRejectedTotal.Inc()
	}
	s.log.Info("decision recorded",
		zap.String("order_id", order.ID),
		zap.String("action", string(action)),
		zap.String("actor", identity.Mobile),
		zap.String("from", string(status)),
		zap.String("to", string(next)),
	)

	order.PaymentStatus = string(next)
	order.RejectedReason = rejectedReason
	return order, nil
}

// paymentType resolves the order's payment type from its transaction record.
// An order with no transaction yet gates like a plain non-coins order.
func (s *ApprovalService) paymentType(ctx context.Context, orderID string) (workflow.PaymentType, error) {
	txn, err := s.txnRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	return workflow.PaymentType(txn.PaymentType), nil
}

// currentStatus re-derives the order's status from its history instead of
// trusting the stored column. The stored value only wins for the super-admin
// re-review flag, which is set outside the approve/reject fold but gates the
// same way as PENDING_SUPER_ADMIN_VERIFICATION.
func currentStatus(order *repository.Order, rows []*repository.ApprovalHistoryEntry) workflow.Status {
	if len(rows) == 0 {
		return workflow.Status(order.PaymentStatus)
	}
	entries := make([]workflow.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.Workflow()
	}
	derived := workflow.DeriveStatus(workflow.StatusPendingAdmin, entries)
	if derived == workflow.StatusPendingSuperAdmin &&
		order.PaymentStatus == string(workflow.StatusPendingSuperAdminRejection) {
		return workflow.StatusPendingSuperAdminRejection
	}
	return derived
}

func relevantOnly(checks workflow.CheckSet, pt workflow.PaymentType, coins int64) workflow.CheckSet {
	out := make(workflow.CheckSet)
	for _, c := range workflow.RelevantChecks(pt, coins) {
		if v, ok := checks.Get(c); ok {
			out[c] = v
		}
	}
	return out
}

func checkPtr(checks workflow.CheckSet, c workflow.Check) *bool {
	if v, ok := checks.Get(c); ok {
		return &v
	}
	return nil
}

func actingRole(roles workflow.Role) string {
	if roles.Has(workflow.RoleSuperAdmin) {
		return "SUPER_ADMIN"
	}
	return "ADMIN"
}

func (s *ApprovalService) enqueueEvent(ctx context.Context, tx db.Tx, identity workflow.Identity, entry *repository.ApprovalHistoryEntry, from, to workflow.Status) error {
	payload := repository.ApprovalEventPayload{
		Timestamp:   entry.CreatedAt,
		OrderID:     entry.OrderID,
		Action:      entry.Action,
		ActorMobile: identity.Mobile,
		ActorName:   identity.Name,
		ActorRole:   entry.ActorRole,
		OldStatus:   string(from),
		NewStatus:   string(to),
		Comments:    entry.Comments,
		Checks:      checksMap(entry),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal approval event: %w", err)
	}
	task := &repository.OutboxTask{Payload: raw, Topic: s.topic}
	if err := s.outboxRepo.CreateTx(ctx, tx, task); err != nil {
		return fmt.Errorf("failed to enqueue approval event: %w", err)
	}
	return nil
}

func checksMap(entry *repository.ApprovalHistoryEntry) map[string]bool {
	out := make(map[string]bool)
	if entry.UnitsChecked != nil {
		out[string(workflow.CheckUnits)] = *entry.UnitsChecked
	}
	if entry.PaymentProof != nil {
		out[string(workflow.CheckPaymentProof)] = *entry.PaymentProof
	}
	if entry.PaymentReceived != nil {
		out[string(workflow.CheckPaymentReceived)] = *entry.PaymentReceived
	}
	if entry.CoinsChecked != nil {
		out[string(workflow.CheckCoins)] = *entry.CoinsChecked
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
