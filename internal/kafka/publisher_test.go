package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/herdvest/backoffice/internal/db"
	mock_database "github.com/herdvest/backoffice/internal/db/mocks"
	"github.com/herdvest/backoffice/internal/repository"
)

type sentMessage struct {
	topic string
	key   []byte
	value []byte
}

type stubProducer struct {
	mu      sync.Mutex
	sendErr error
	sent    []sentMessage
}

func (p *stubProducer) SendMessage(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *stubProducer) Close() error { return nil }

func (p *stubProducer) messages() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.sent...)
}

type statusUpdate struct {
	id        uuid.UUID
	status    repository.TaskStatus
	attempts  int
	lastError *string
}

type stubOutboxRepo struct {
	mu      sync.Mutex
	pending []*repository.OutboxTask
	updates []statusUpdate
}

func (r *stubOutboxRepo) CreateTx(context.Context, db.Tx, *repository.OutboxTask) error {
	return nil
}

// GetProcessableTasks hands out the pending batch once; later polls see an
// empty outbox.
func (r *stubOutboxRepo) GetProcessableTasks(context.Context, db.DB, int) ([]*repository.OutboxTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := r.pending
	r.pending = nil
	return tasks, nil
}

func (r *stubOutboxRepo) UpdateTaskStatusTx(_ context.Context, _ db.Tx, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, _ *time.Time) error {
	return r.record(id, status, attempts, lastError)
}

func (r *stubOutboxRepo) UpdateTaskStatus(_ context.Context, _ db.DB, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, _ *time.Time) error {
	return r.record(id, status, attempts, lastError)
}

func (r *stubOutboxRepo) record(id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{id: id, status: status, attempts: attempts, lastError: lastError})
	return nil
}

func (r *stubOutboxRepo) statuses() []repository.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.TaskStatus, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.status)
	}
	return out
}

func newPublisherFixture(t *testing.T, producer *stubProducer, repo *stubOutboxRepo) *Publisher {
	ctrl := gomock.NewController(t)

	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	mockDB.EXPECT().BeginTx(gomock.Any()).Return(mockTx, nil).AnyTimes()
	mockTx.EXPECT().Commit(gomock.Any()).Return(nil).AnyTimes()
	mockTx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	return NewPublisher(mockDB, repo, producer, PublisherConfig{
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
	})
}

func TestPublisher_DeliversAndMarksDone(t *testing.T) {
	taskID := uuid.New()
	producer := &stubProducer{}
	repo := &stubOutboxRepo{
		pending: []*repository.OutboxTask{
			{ID: taskID, Topic: "order-approvals", Payload: []byte(`{"order_id":"order-1"}`)},
		},
	}

	publisher := newPublisherFixture(t, producer, repo)
	go publisher.Run(context.Background())

	require.Eventually(t, func() bool {
		return len(producer.messages()) == 1
	}, time.Second, 5*time.Millisecond)
	publisher.Shutdown()

	msg := producer.messages()[0]
	assert.Equal(t, "order-approvals", msg.topic)
	assert.Equal(t, taskID.String(), string(msg.key))
	assert.JSONEq(t, `{"order_id":"order-1"}`, string(msg.value))

	statuses := repo.statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, repository.TaskStatusProcessing, statuses[0])
	assert.Equal(t, repository.TaskStatusDone, statuses[1])
}

func TestPublisher_SendFailureMarksFailed(t *testing.T) {
	taskID := uuid.New()
	producer := &stubProducer{sendErr: errors.New("broker unavailable")}
	repo := &stubOutboxRepo{
		pending: []*repository.OutboxTask{
			{ID: taskID, Topic: "order-approvals", Payload: []byte(`{}`), Attempts: 1},
		},
	}

	publisher := newPublisherFixture(t, producer, repo)
	go publisher.Run(context.Background())

	require.Eventually(t, func() bool {
		return len(repo.statuses()) == 2
	}, time.Second, 5*time.Millisecond)
	publisher.Shutdown()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.updates, 2)
	assert.Equal(t, repository.TaskStatusProcessing, repo.updates[0].status)

	failed := repo.updates[1]
	assert.Equal(t, repository.TaskStatusFailed, failed.status)
	assert.Equal(t, 2, failed.attempts)
	require.NotNil(t, failed.lastError)
	assert.Equal(t, "broker unavailable", *failed.lastError)
}
