package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

type serviceTypeRepository struct {
	BaseRepository
}

func NewServiceTypeRepository(base BaseRepository) repository.ServiceTypeRepository {
	return &serviceTypeRepository{base}
}

func (r *serviceTypeRepository) Create(ctx context.Context, st *model.ServiceType) error {
	st.CreatedAt = time.Now()
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO service_types (name, created_at) VALUES ($1, $2) RETURNING id`,
		st.Name, st.CreatedAt,
	).Scan(&st.ID)
	return mapError(err, "create service type")
}

func (r *serviceTypeRepository) List(ctx context.Context) ([]model.ServiceType, error) {
	types := []model.ServiceType{}
	if err := r.db.SelectContext(ctx, &types, `SELECT id, name, created_at FROM service_types ORDER BY name, id`); err != nil {
		return nil, mapError(err, "list service types")
	}
	return types, nil
}

// GetMany returns the service types ordered by id; unknown ids are skipped.
func (r *serviceTypeRepository) GetMany(ctx context.Context, ids []int64) ([]model.ServiceType, error) {
	types := []model.ServiceType{}
	if len(ids) == 0 {
		return types, nil
	}
	query, args, err := r.in(`SELECT id, name, created_at FROM service_types WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build service type query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, mapError(err, "get service types")
	}
	return types, nil
}
