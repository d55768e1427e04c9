package store

import (
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const donorTableName = "donors"

var donorColumns = utils.StructTagValues(types.Donor{})

type DonorRepository struct {
	pool *pgxpool.Pool
}

func NewDonorRepository(pool *pgxpool.Pool) *DonorRepository {
	return &DonorRepository{pool: pool}
}

func (r *DonorRepository) Donors(ctx context.Context) ([]*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donors query: %w", err)
	}

	var donors = make([]*types.Donor, 0)
	err = pgxscan.Select(ctx, r.pool, &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donors: %w", err)
	}

	return donors, nil
}

// DonorsByBloodTypes narrows the population in SQL, for callers that bypass
// the cache.
func (r *DonorRepository) DonorsByBloodTypes(ctx context.Context, bloodTypes []types.BloodType) ([]*types.Donor, error) {
	if len(bloodTypes) == 0 {
		return []*types.Donor{}, nil
	}

	values := make([]string, 0, len(bloodTypes))
	for _, bt := range bloodTypes {
		values = append(values, string(bt))
	}

	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(sq.Eq{"blood_type": values}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donors-by-blood-type query: %w", err)
	}

	var donors = make([]*types.Donor, 0)
	err = pgxscan.Select(ctx, r.pool, &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donors by blood type: %w", err)
	}

	return donors, nil
}

func (r *DonorRepository) Donor(ctx context.Context, donorID string) (*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(sq.Eq{"id": donorID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor query: %w", err)
	}

	var donor types.Donor
	err = pgxscan.Get(ctx, r.pool, &donor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonorNotFound
		}
		return nil, fmt.Errorf("failed to fetch donor: %w", err)
	}

	return &donor, nil
}

func (r *DonorRepository) CreateDonor(ctx context.Context, donor *types.Donor) error {
	now := time.Now().UTC()
	if donor.ID == "" {
		donor.ID = utils.NanoID()
	}
	donor.CreatedAt = now
	donor.UpdatedAt = now

	query, args, err := psql().
		Insert(donorTableName).
		SetMap(utils.StructToMap(donor)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create donor query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create donor")
}

func (r *DonorRepository) UpdateDonor(ctx context.Context, donor *types.Donor) error {
	updatedAt := time.Now().UTC()

	values := utils.StructToMap(donor, "id", "created_at", "version")
	values["updated_at"] = updatedAt

	query, args, err := psql().
		Update(donorTableName).
		SetMap(values).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": donor.ID, "version": donor.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update donor query for donor %s: %w", donor.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update donor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.Donor(ctx, donor.ID); err != nil {
			return err
		}
		return types.ErrDonorConflict
	}

	donor.UpdatedAt = updatedAt
	donor.Version++
	return nil
}

func (r *DonorRepository) DeleteDonor(ctx context.Context, donorID string) error {
	query, args, err := psql().Delete(donorTableName).Where(sq.Eq{"id": donorID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete donor query for donor %s: %w", donorID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete donor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDonorNotFound
	}

	return nil
}
