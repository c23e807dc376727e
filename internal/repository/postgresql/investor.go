package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
)

type InvestorRepo struct {
	db db.DB
}

func NewInvestorRepo(db db.DB) storage.InvestorRepository {
	return &InvestorRepo{db: db}
}

func (r *InvestorRepo) GetByMobile(ctx context.Context, mobile string) (*repository.Investor, error) {
	var investor repository.Investor
	err := r.db.Get(ctx, &investor, `
        SELECT mobile, name, kyc_status, pan_doc_ref, aadhar_doc_ref, created_at
        FROM investors WHERE mobile = $1
    `, mobile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &investor, nil
}

type TransactionRepo struct {
	db db.DB
}

func NewTransactionRepo(db db.DB) storage.TransactionRepository {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) GetByOrderID(ctx context.Context, orderID string) (*repository.Transaction, error) {
	var txn repository.Transaction
	err := r.db.Get(ctx, &txn, `
        SELECT id, order_id, payment_type, transfer_mode, amount,
               proof_front, proof_back, proof_cheque, proof_screenshot,
               utr, cheque_number, cashier_name, transacted_at
        FROM transactions WHERE order_id = $1
        ORDER BY transacted_at DESC LIMIT 1
    `, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &txn, nil
}
