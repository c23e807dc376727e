package postgresql

import (
	"context"

	"github.com/herdvest/backoffice/internal/db"
	"github.com/herdvest/backoffice/internal/repository"
	"github.com/herdvest/backoffice/internal/storage"
)

type FarmRepo struct {
	db db.DB
}

func NewFarmRepo(db db.DB) storage.FarmRepository {
	return &FarmRepo{db: db}
}

func (r *FarmRepo) GetByStatus(ctx context.Context, status string) ([]*repository.Farm, error) {
	var farms []*repository.Farm
	err := r.db.Select(ctx, &farms, `
        SELECT id, name, location, status
        FROM farms
        WHERE status = $1
        ORDER BY name ASC
    `, status)
	return farms, err
}
