package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/herdvest/backoffice/internal/db/mocks"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/repository/postgresql"
)

func TestHistoryRepo_CreateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("persists nullable check columns verbatim", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewHistoryRepo(mockDB)

		verified := true
		failed := false
		entry := &repository.ApprovalHistoryEntry{
			OrderID:         "order-1",
			Action:          "REJECT",
			ActorRole:       "ADMIN",
			ActorName:       "Priya",
			ActorMobile:     "9000000001",
			Comments:        "amount mismatch",
			UnitsChecked:    &verified,
			PaymentProof:    &verified,
			PaymentReceived: &failed,
			CreatedAt:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		}

		mockTx.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(entry.OrderID),
			gomock.Eq(entry.Action),
			gomock.Eq(entry.ActorRole),
			gomock.Eq(entry.ActorName),
			gomock.Eq(entry.ActorMobile),
			gomock.Eq(entry.Comments),
			gomock.Eq(entry.UnitsChecked),
			gomock.Eq(entry.PaymentProof),
			gomock.Eq(entry.PaymentReceived),
			gomock.Nil(), // coinsChecked never set, stored as NULL
			gomock.Eq(entry.CreatedAt),
		).Return(nil, nil)

		err := repo.CreateTx(ctx, mockTx, entry)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewHistoryRepo(mockDB)

		expectedErr := errors.New("constraint violation")
		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
				gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		err := repo.CreateTx(ctx, mockTx, &repository.ApprovalHistoryEntry{OrderID: "order-1"})
		assert.Equal(t, expectedErr, err)
	})
}

func TestHistoryRepo_GetByOrderID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns entries oldest first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewHistoryRepo(mockDB)

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("order-1")).
			DoAndReturn(func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
				assert.Contains(t, query, "ORDER BY created_at ASC, id ASC")
				*dest.(*[]*repository.ApprovalHistoryEntry) = []*repository.ApprovalHistoryEntry{
					{ID: 1, OrderID: "order-1", Action: "APPROVE"},
					{ID: 2, OrderID: "order-1", Action: "REJECT"},
				}
				return nil
			})

		entries, err := repo.GetByOrderID(ctx, "order-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "APPROVE", entries[0].Action)
		assert.Equal(t, "REJECT", entries[1].Action)
	})

	t.Run("empty history", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewHistoryRepo(mockDB)

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		entries, err := repo.GetByOrderID(ctx, "order-2")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
