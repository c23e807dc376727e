package postgresql

import (
	"context"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) storage.HistoryRepository {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.ApprovalHistoryEntry) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO order_history (
            order_id, action, actor_role, actor_name, actor_mobile, comments,
            units_checked, payment_proof, payment_received, coins_checked, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, entry.OrderID, entry.Action, entry.ActorRole, entry.ActorName, entry.ActorMobile,
		entry.Comments, entry.UnitsChecked, entry.PaymentProof, entry.PaymentReceived,
		entry.CoinsChecked, entry.CreatedAt)
	return err
}

const historyColumns = `id, order_id, action, actor_role, actor_name, actor_mobile, comments,
        units_checked, payment_proof, payment_received, coins_checked, created_at`

func (r *HistoryRepo) GetByOrderID(ctx context.Context, orderID string) ([]*repository.ApprovalHistoryEntry, error) {
	var entries []*repository.ApprovalHistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT `+historyColumns+`
        FROM order_history
        WHERE order_id = $1
        ORDER BY created_at ASC, id ASC
    `, orderID)
	return entries, err
}

func (r *HistoryRepo) GetByOrderIDTx(ctx context.Context, tx db.Tx, orderID string) ([]*repository.ApprovalHistoryEntry, error) {
	var entries []*repository.ApprovalHistoryEntry
	err := tx.Select(ctx, &entries, `
        SELECT `+historyColumns+`
        FROM order_history
        WHERE order_id = $1
        ORDER BY created_at ASC, id ASC
    `, orderID)
	return entries, err
}
