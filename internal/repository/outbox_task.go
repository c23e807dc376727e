package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDone       TaskStatus = "DONE"
)

type OutboxTask struct {
	ID          uuid.UUID       `db:"id"`
	Status      TaskStatus      `db:"status"`
	Payload     json.RawMessage `db:"payload"`
	Topic       string          `db:"topic"`
	Attempts    int             `db:"attempts"`
	LastError   *string         `db:"last_error"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// ApprovalEventPayload is the audit event published for every approve/reject
// decision that commits.
type ApprovalEventPayload struct {
	Timestamp   time.Time       `json:"timestamp"`
	OrderID     string          `json:"order_id"`
	Action      string          `json:"action"`
	ActorMobile string          `json:"actor_mobile"`
	ActorName   string          `json:"actor_name,omitempty"`
	ActorRole   string          `json:"actor_role"`
	OldStatus   string          `json:"old_status"`
	NewStatus   string          `json:"new_status"`
	Comments    string          `json:"comments,omitempty"`
	Checks      map[string]bool `json:"checks,omitempty"`
}
