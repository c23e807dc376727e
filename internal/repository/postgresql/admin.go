package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AdminRepo struct {
	db db.DB
}

func NewAdminRepo(db db.DB) storage.AdminRepository {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) GetByMobile(ctx context.Context, mobile string) (*repository.Admin, error) {
	var admin repository.Admin
	err := r.db.Get(ctx, &admin, `
        SELECT mobile, name, password, roles, created_at
        FROM admins WHERE mobile = $1
    `, mobile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepo) ValidateCredentials(ctx context.Context, mobile, password string) (*repository.Admin, error) {
	admin, err := r.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}
