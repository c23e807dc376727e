//go:generate mockgen -source ./repositories.go -destination=./mocks/repositories.go -package=mock_storage
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error)
	UpdateStatusTx(ctx context.Context, tx db.Tx, id, status string, rejectedReason *string) error
	List(ctx context.Context, filter repository.OrderFilter) ([]*repository.Order, int64, error)
	Counts(ctx context.Context, filter repository.OrderFilter) (*repository.StatusCounts, error)
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.ApprovalHistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.ApprovalHistoryEntry, error)
	GetByOrderIDTx(ctx context.Context, tx db.Tx, orderID string) ([]*repository.ApprovalHistoryEntry, error)
}

type TransactionRepository interface {
	GetByOrderID(ctx context.Context, orderID string) (*repository.Transaction, error)
}

type InvestorRepository interface {
	GetByMobile(ctx context.Context, mobile string) (*repository.Investor, error)
}

type FarmRepository interface {
	GetByStatus(ctx context.Context, status string) ([]*repository.Farm, error)
}

type AdminRepository interface {
	GetByMobile(ctx context.Context, mobile string) (*repository.Admin, error)
	ValidateCredentials(ctx context.Context, mobile, password string) (*repository.Admin, error)
}

type OutboxTaskRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
	GetProcessableTasks(ctx context.Context, db db.DB, limit int) ([]*repository.OutboxTask, error)
	UpdateTaskStatusTx(ctx context.Context, tx db.Tx, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
	UpdateTaskStatus(ctx context.Context, db db.DB, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
}
