package postgresql_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	mock_database "github.com/herdvest/backoffice/internal/db/mocks"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/repository/postgresql"
)

func TestAdminRepo_ValidateCredentials(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	expectAdmin := func(mockDB *mock_database.MockDB) {
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("9000000001")).
			DoAndReturn(func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				admin := dest.(*repository.Admin)
				admin.Mobile = "9000000001"
				admin.Name = "Priya"
				admin.Password = string(hash)
				admin.Roles = []string{"ADMIN"}
				return nil
			})
	}

	t.Run("valid credentials", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		expectAdmin(mockDB)
		repo := postgresql.NewAdminRepo(mockDB)

		admin, err := repo.ValidateCredentials(ctx, "9000000001", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "Priya", admin.Name)
		assert.Equal(t, []string{"ADMIN"}, admin.Roles)
	})

	t.Run("wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		expectAdmin(mockDB)
		repo := postgresql.NewAdminRepo(mockDB)

		_, err := repo.ValidateCredentials(ctx, "9000000001", "wrong")
		assert.ErrorIs(t, err, postgresql.ErrInvalidCredentials)
	})

	t.Run("unknown mobile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockDB.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgx.ErrNoRows)
		repo := postgresql.NewAdminRepo(mockDB)

		_, err := repo.ValidateCredentials(ctx, "9999999999", "whatever")
		assert.ErrorIs(t, err, postgresql.ErrInvalidCredentials)
	})
}
