package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
)

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) storage.OrderRepository {
	return &OrderRepo{db: db}
}

const orderColumns = `o.id, o.farm_id, o.farm_location, o.investor_mobile, o.placed_at,
		o.units, o.buffalo_count, o.calf_count, o.unit_cost, o.total_cost,
		o.coins_redeemed, o.payment_status, o.rejected_reason, o.created_at, o.updated_at`

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, fmt.Sprintf("SELECT %s FROM orders o WHERE o.id = $1", orderColumns), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error) {
	var order repository.Order
	err := tx.Get(ctx, &order, fmt.Sprintf("SELECT %s FROM orders o WHERE o.id = $1 FOR UPDATE", orderColumns), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx db.Tx, id, status string, rejectedReason *string) error {
	tag, err := tx.Exec(ctx, `
        UPDATE orders
        SET payment_status = $2,
            rejected_reason = $3,
            updated_at = now()
        WHERE id = $1
    `, id, status, rejectedReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// buildWhere assembles the WHERE clause for a filtered query. withStatus
// controls whether the status filter participates; the counts query always
// drops it so the status buckets stay comparable across tabs.
func buildWhere(filter repository.OrderFilter, withStatus bool) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if withStatus && filter.PaymentStatus != "" {
		add("o.payment_status = $%d", filter.PaymentStatus)
	}
	if filter.PaymentType != "" {
		add("t.payment_type = $%d", filter.PaymentType)
	}
	if filter.TransferMode != "" {
		add("t.transfer_mode = $%d", filter.TransferMode)
	}
	if filter.FarmID != "" {
		add("o.farm_id = $%d", filter.FarmID)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(o.id ILIKE $%d OR o.investor_mobile ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *OrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*repository.Order, int64, error) {
	where, args := buildWhere(filter, true)
	from := " FROM orders o LEFT JOIN transactions t ON t.order_id = o.id"

	var total int64
	err := r.db.Get(ctx, &total, "SELECT COUNT(*)"+from+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf("SELECT %s%s%s ORDER BY o.placed_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, from, where, len(args)-1, len(args))

	var orders []*repository.Order
	if err := r.db.Select(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *OrderRepo) Counts(ctx context.Context, filter repository.OrderFilter) (*repository.StatusCounts, error) {
	where, args := buildWhere(filter, false)
	query := `
        SELECT
            COUNT(*) FILTER (WHERE o.payment_status = 'PENDING_PAYMENT')                   AS payment_due_count,
            COUNT(*) FILTER (WHERE o.payment_status = 'PENDING_ADMIN_VERIFICATION')        AS pending_admin_approval_count,
            COUNT(*) FILTER (WHERE o.payment_status = 'PENDING_SUPER_ADMIN_VERIFICATION')  AS pending_super_admin_approval_count,
            COUNT(*) FILTER (WHERE o.payment_status = 'PENDING_SUPER_ADMIN_REJECTION')     AS pending_super_admin_rejection_count,
            COUNT(*) FILTER (WHERE o.payment_status = 'PAID')                              AS paid_count,
            COUNT(*) FILTER (WHERE o.payment_status = 'REJECTED')                          AS rejected_count,
            COUNT(*)                                                                       AS total_all_orders
        FROM orders o LEFT JOIN transactions t ON t.order_id = o.id` + where

	var counts repository.StatusCounts
	if err := r.db.Get(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count status buckets: %w", err)
	}
	return &counts, nil
}
