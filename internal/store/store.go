// Package store is the persistence boundary. The engine only ever talks to a
// RecordStore, usually through the read-through cache.
package store

import (
	"context"

	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
)

// RecordStore is implemented by every backend. Lookups of absent ids return
// an error matching types.ErrRecordNotFound. Records returned to callers are
// private copies.
type RecordStore interface {
	Donors(ctx context.Context) ([]*types.Donor, error)
	Donor(ctx context.Context, id string) (*types.Donor, error)
	CreateDonor(ctx context.Context, donor *types.Donor) error
	// UpdateDonor writes donor only if the stored version still equals
	// donor.Version, otherwise it returns types.ErrDonorConflict. On success
	// donor.Version is advanced to the stored value.
	UpdateDonor(ctx context.Context, donor *types.Donor) error
	DeleteDonor(ctx context.Context, id string) error

	Requests(ctx context.Context) ([]*types.EmergencyRequest, error)
	Request(ctx context.Context, id string) (*types.EmergencyRequest, error)
	CreateRequest(ctx context.Context, req *types.EmergencyRequest) error
	// UpdateRequest writes req only if the stored status still equals
	// expected, otherwise it returns types.ErrStatusConflict. CreatedAt and
	// ExpiresAt are never rewritten.
	UpdateRequest(ctx context.Context, req *types.EmergencyRequest, expected types.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *types.Notification) error
	NotificationsByUser(ctx context.Context, userID string) ([]*types.Notification, error)
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
