package store

import (
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestTableName = "emergency_requests"

var requestColumns = utils.StructTagValues(types.EmergencyRequest{})

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Requests(ctx context.Context) ([]*types.EmergencyRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		OrderBy("created_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate requests query: %w", err)
	}

	var requests = make([]*types.EmergencyRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emergency requests: %w", err)
	}

	return requests, nil
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.EmergencyRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var req types.EmergencyRequest
	err = pgxscan.Get(ctx, r.pool, &req, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch emergency request: %w", err)
	}

	return &req, nil
}

func (r *RequestRepository) CreateRequest(ctx context.Context, req *types.EmergencyRequest) error {
	if req.ID == "" {
		req.ID = utils.NanoID()
	}
	stampRequest(req)

	query, args, err := psql().
		Insert(requestTableName).
		SetMap(utils.StructToMap(req)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create emergency request")
}

func (r *RequestRepository) UpdateRequest(ctx context.Context, req *types.EmergencyRequest, expected types.RequestStatus) error {
	query, args, err := psql().
		Update(requestTableName).
		SetMap(utils.StructToMap(req, "id", "created_at", "expires_at")).
		Where(sq.Eq{"id": req.ID, "status": expected}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update request query for request %s: %w", req.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update emergency request: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: either the row is gone or another writer moved it.
	if _, err := r.Request(ctx, req.ID); err != nil {
		return err
	}

	return types.ErrStatusConflict
}

func (r *RequestRepository) DeleteRequest(ctx context.Context, requestID string) error {
	query, args, err := psql().Delete(requestTableName).Where(sq.Eq{"id": requestID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete request query for request %s: %w", requestID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete emergency request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrRequestNotFound
	}

	return nil
}
